package memcube

import (
	"sort"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// Sales member unique names.
const (
	UnitSales     = "[Measures].[Unit Sales]"
	StoreSales    = "[Measures].[Store Sales]"
	CustomerCount = "[Measures].[Customer Count]"
	AvgPrice      = "[Measures].[Avg Price]"
	MedianSales   = "[Measures].[Median Sales]"
)

// Median has no rollup: medians of parts do not combine into the median
// of the whole.
var Median = aggregate.New("median", nil, func(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2], true
	}
	return (s[n/2-1] + s[n/2]) / 2, true
})

var (
	salesGenders = []string{"F", "M"}
	salesStores  = [][]string{
		{"USA", "CA", "Los Angeles"},
		{"USA", "CA", "San Francisco"},
		{"USA", "OR", "Portland"},
		{"USA", "OR", "Salem"},
		{"USA", "WA", "Seattle"},
		{"USA", "WA", "Spokane"},
		{"Canada", "BC", "Vancouver"},
	}
	salesYears    = []string{"1997", "1998"}
	salesQuarters = []string{"Q1", "Q2", "Q3", "Q4"}
)

// Sales returns a small sales cube with measures Unit Sales and Store
// Sales (sum), Customer Count (distinct count), Avg Price (average) and
// Median Sales (no rollup), and hierarchies Gender, Store
// (Country/State/City) and Time (Year/Quarter, no all member).
//
// Every gender, city and quarter has one fact row.
func Sales() *Store {
	b := NewBuilder("Sales")
	unit := b.Measure("Unit Sales", aggregate.Sum)
	store := b.Measure("Store Sales", aggregate.Sum)
	customers := b.Measure("Customer Count", aggregate.DistinctCount)
	price := b.Measure("Avg Price", aggregate.Avg)
	median := b.Measure("Median Sales", Median)

	gender := b.Hierarchy("Gender", true, "Gender")
	stores := b.Hierarchy("Store", true, "Country", "State", "City")
	time := b.Hierarchy("Time", false, "Year", "Quarter")

	var genders, cities, quarters []*olap.Member
	for _, g := range salesGenders {
		genders = append(genders, b.Path(gender, g))
	}
	for _, path := range salesStores {
		cities = append(cities, b.Path(stores, path...))
	}
	for _, y := range salesYears {
		for _, q := range salesQuarters {
			quarters = append(quarters, b.Path(time, y, q))
		}
	}

	s := b.Build()
	for gi, g := range genders {
		for ci, c := range cities {
			for qi, q := range quarters {
				units := float64(10 + 5*ci + 2*qi + gi)
				s.AddFact(map[*olap.Member]float64{
					unit:      units,
					store:     units * 2.5,
					customers: float64((ci*3+qi)%7 + 7*gi),
					price:     2.5 + float64(qi%4)/2,
					median:    units,
				}, g, c, q)
			}
		}
	}
	return s
}
