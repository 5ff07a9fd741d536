package services

import (
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"pedidos-app/internal/models"
)

// KPIService aggregates per-order settlement figures into business metrics.
type KPIService struct {
	DB         *gorm.DB
	Settlement *SettlementService
	Now        func() time.Time
}

func NewKPIService(db *gorm.DB) *KPIService {
	return &KPIService{DB: db, Settlement: NewSettlementService(db), Now: time.Now}
}

// KPIs is the summary block: only orders with a billable total > 0 count,
// so empty orders do not skew the averages.
type KPIs struct {
	AvgOrderValue     int       `json:"avg_order_value"`
	TotalCustomers    int64     `json:"total_customers"`
	TotalOrders       int       `json:"total_orders"`
	TotalRevenue      int       `json:"total_revenue"`
	AvgUtilityPercent float64   `json:"avg_utility_percent"`
	AvgUtilityAmount  int       `json:"avg_utility_amount"`
	AvgOrdersPerWeek  float64   `json:"avg_orders_per_week"`
	Weeks             []WeekKPI `json:"weeks"`
}

// WeekKPI buckets orders into ISO weeks (Monday start).
type WeekKPI struct {
	Year               int          `json:"year"`
	Week               int          `json:"week"`
	Orders             int          `json:"orders"`
	Revenue            int          `json:"revenue"`
	RevenueBySeller    map[uint]int `json:"revenue_by_seller"`
	RevenueByProduct   map[uint]int `json:"revenue_by_product"`
	CustomerReturnRate float64      `json:"customer_return_rate"`
	SellerReturnRate   float64      `json:"seller_return_rate"`
}

type weekKey struct {
	year, week int
}

type weekAgg struct {
	orders           int
	revenue          int
	revenueBySeller  map[uint]int
	revenueByProduct map[uint]int
	customers        map[uint]bool
	sellers          map[uint]bool
}

// GetKPIs computes the summary and weekly series over all billable orders.
func (s *KPIService) GetKPIs() (KPIs, error) {
	var kpis KPIs

	if err := s.DB.Model(&models.Customer{}).Count(&kpis.TotalCustomers).Error; err != nil {
		return kpis, err
	}

	var orders []models.Order
	err := s.DB.
		Preload("Items").Preload("Items.Product").Preload("Expenses").
		Where("status IN ?", []models.OrderStatus{models.StatusCompleted, models.StatusEmitted, "finalized"}).
		Find(&orders).Error
	if err != nil {
		return kpis, err
	}

	weeks := map[weekKey]*weekAgg{}
	var utilityPercents, utilityAmounts []float64
	recentCutoff := s.now().AddDate(0, 0, -30)
	recentCount := 0

	for i := range orders {
		order := &orders[i]
		totals, err := s.Settlement.OrderTotals(order)
		if err != nil {
			return kpis, err
		}
		if totals.Total <= 0 {
			continue
		}

		kpis.TotalOrders++
		kpis.TotalRevenue += totals.Total
		if order.CreatedAt.After(recentCutoff) {
			recentCount++
		}
		if totals.HasCostData && totals.Cost > 0 {
			utilityAmounts = append(utilityAmounts, totals.UtilityAmount)
			utilityPercents = append(utilityPercents, totals.UtilityPercent)
		}

		year, week := order.CreatedAt.ISOWeek()
		key := weekKey{year, week}
		agg := weeks[key]
		if agg == nil {
			agg = &weekAgg{
				revenueBySeller:  map[uint]int{},
				revenueByProduct: map[uint]int{},
				customers:        map[uint]bool{},
				sellers:          map[uint]bool{},
			}
			weeks[key] = agg
		}
		agg.orders++
		agg.revenue += totals.Total
		if order.SellerID != nil {
			agg.revenueBySeller[*order.SellerID] += totals.Total
			agg.sellers[*order.SellerID] = true
		}
		for j := range order.Items {
			agg.customers[order.Items[j].CustomerID] = true
		}
		for _, it := range totals.Items {
			agg.revenueByProduct[it.ProductID] += it.Total
		}
	}

	if kpis.TotalOrders > 0 {
		kpis.AvgOrderValue = int(math.Round(float64(kpis.TotalRevenue) / float64(kpis.TotalOrders)))
	}
	if len(utilityPercents) > 0 {
		kpis.AvgUtilityPercent = mean(utilityPercents)
		kpis.AvgUtilityAmount = int(math.Round(mean(utilityAmounts)))
	}
	if recentCount > 0 {
		kpis.AvgOrdersPerWeek = float64(recentCount) / 4
	}

	kpis.Weeks = buildWeekSeries(weeks)
	return kpis, nil
}

// buildWeekSeries orders the buckets chronologically and computes return
// rates over the observed week sequence.
func buildWeekSeries(weeks map[weekKey]*weekAgg) []WeekKPI {
	keys := make([]weekKey, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})

	series := make([]WeekKPI, 0, len(keys))
	for i, k := range keys {
		agg := weeks[k]
		wk := WeekKPI{
			Year:             k.year,
			Week:             k.week,
			Orders:           agg.orders,
			Revenue:          agg.revenue,
			RevenueBySeller:  agg.revenueBySeller,
			RevenueByProduct: agg.revenueByProduct,
		}
		if i >= 2 {
			prev := weeks[keys[i-1]]
			prevPrev := weeks[keys[i-2]]
			wk.CustomerReturnRate = returnRate(agg.customers, prev.customers, prevPrev.customers)
			wk.SellerReturnRate = returnRate(agg.sellers, prev.sellers, prevPrev.sellers)
		}
		series = append(series, wk)
	}
	return series
}

// returnRate for week W is |active(W or W-1) ∩ active(W-1 or W-2)| divided
// by |active(W-1 or W-2)|; zero when the base window is empty.
func returnRate(w, w1, w2 map[uint]bool) float64 {
	base := union(w1, w2)
	if len(base) == 0 {
		return 0
	}
	recent := union(w, w1)
	inter := 0
	for id := range recent {
		if base[id] {
			inter++
		}
	}
	return float64(inter) / float64(len(base))
}

func union(a, b map[uint]bool) map[uint]bool {
	out := make(map[uint]bool, len(a)+len(b))
	for id := range a {
		out[id] = true
	}
	for id := range b {
		out[id] = true
	}
	return out
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func (s *KPIService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
