package sorting

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/dealfinder/internal/listing"
)

type rowSpec struct {
	id       string
	title    string
	cpuModel string
	ram      string
	storage  string
	price    *float64
	perf     *float64
	tco      *float64
	ppd      *float64
	freeShip bool
}

func rows(specs ...rowSpec) []listing.Derived {
	out := make([]listing.Derived, len(specs))
	for i, s := range specs {
		out[i] = listing.Derived{
			Raw: listing.Raw{
				ItemID:       s.id,
				Title:        s.title,
				CPUModel:     s.cpuModel,
				RAM:          s.ram,
				Storage:      s.storage,
				Price:        s.price,
				Performance:  s.perf,
				FreeShipping: s.freeShip,
			},
			Overrides:            listing.DefaultOverrides(),
			TCO:                  s.tco,
			PerformancePerDollar: s.ppd,
		}
	}
	return out
}

func sortedIDs(items []listing.Derived, spec Spec) []string {
	Sort(items, spec)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID
	}
	return out
}

func TestSort_NumericColumnsKeepAbsentLastInBothDirections(t *testing.T) {
	f := listing.Float
	for _, column := range []Column{ColumnPrice, ColumnTCO, ColumnPerformance, ColumnPerformancePerDollar} {
		t.Run(string(column), func(t *testing.T) {
			set := func(v *float64) rowSpec {
				r := rowSpec{}
				switch column {
				case ColumnPrice:
					r.price = v
				case ColumnTCO:
					r.tco = v
				case ColumnPerformance:
					r.perf = v
				case ColumnPerformancePerDollar:
					r.ppd = v
				}
				return r
			}
			build := func() []listing.Derived {
				specs := []rowSpec{set(nil), set(f(30)), set(f(10)), set(nil), set(f(20))}
				for i, id := range []string{"n1", "30", "10", "n2", "20"} {
					specs[i].id = id
				}
				return rows(specs...)
			}

			asc := sortedIDs(build(), Spec{Column: column, Order: Asc})
			if diff := cmp.Diff([]string{"10", "20", "30", "n1", "n2"}, asc); diff != "" {
				t.Fatalf("asc mismatch (-want +got):\n%s", diff)
			}
			desc := sortedIDs(build(), Spec{Column: column, Order: Desc})
			if diff := cmp.Diff([]string{"30", "20", "10", "n1", "n2"}, desc); diff != "" {
				t.Fatalf("desc mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSort_TextColumnsFlipAbsentWithDirection(t *testing.T) {
	build := func() []listing.Derived {
		return rows(
			rowSpec{id: "none", title: ""},
			rowSpec{id: "b", title: "Beelink"},
			rowSpec{id: "a", title: "Asus"},
			rowSpec{id: "na", title: "N/A"},
		)
	}

	asc := sortedIDs(build(), Spec{Column: ColumnTitle, Order: Asc})
	if diff := cmp.Diff([]string{"a", "b", "none", "na"}, asc); diff != "" {
		t.Fatalf("asc mismatch (-want +got):\n%s", diff)
	}
	desc := sortedIDs(build(), Spec{Column: ColumnTitle, Order: Desc})
	if diff := cmp.Diff([]string{"none", "na", "b", "a"}, desc); diff != "" {
		t.Fatalf("desc mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_Capacity(t *testing.T) {
	build := func() []listing.Derived {
		return rows(
			rowSpec{id: "1tb", storage: "1TB SSD"},
			rowSpec{id: "none", storage: ""},
			rowSpec{id: "256", storage: "256GB"},
			rowSpec{id: "512", storage: "512 GB NVMe"},
		)
	}

	asc := sortedIDs(build(), Spec{Column: ColumnStorage, Order: Asc})
	if diff := cmp.Diff([]string{"256", "512", "1tb", "none"}, asc); diff != "" {
		t.Fatalf("asc mismatch (-want +got):\n%s", diff)
	}
	desc := sortedIDs(build(), Spec{Column: ColumnStorage, Order: Desc})
	if diff := cmp.Diff([]string{"none", "1tb", "512", "256"}, desc); diff != "" {
		t.Fatalf("desc mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_FreeShippingTrueFirstAscending(t *testing.T) {
	build := func() []listing.Derived {
		return rows(
			rowSpec{id: "paid1"},
			rowSpec{id: "free1", freeShip: true},
			rowSpec{id: "paid2"},
			rowSpec{id: "free2", freeShip: true},
		)
	}

	asc := sortedIDs(build(), Spec{Column: ColumnFreeShipping, Order: Asc})
	if diff := cmp.Diff([]string{"free1", "free2", "paid1", "paid2"}, asc); diff != "" {
		t.Fatalf("asc mismatch (-want +got):\n%s", diff)
	}
	desc := sortedIDs(build(), Spec{Column: ColumnFreeShipping, Order: Desc})
	if diff := cmp.Diff([]string{"paid1", "paid2", "free1", "free2"}, desc); diff != "" {
		t.Fatalf("desc mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_CPUTypeAndModel(t *testing.T) {
	build := func() []listing.Derived {
		return rows(
			rowSpec{id: "i7", cpuModel: "i7-8700T"},
			rowSpec{id: "xeon", cpuModel: "Xeon E3"},
			rowSpec{id: "n100", cpuModel: "N100"},
			rowSpec{id: "i5", cpuModel: "i5-6500"},
			rowSpec{id: "i3bare", cpuModel: "i3"},
		)
	}

	types := sortedIDs(build(), Spec{Column: ColumnCPUType, Order: Asc})
	if diff := cmp.Diff([]string{"i3bare", "i5", "i7", "n100", "xeon"}, types); diff != "" {
		t.Fatalf("cpu type mismatch (-want +got):\n%s", diff)
	}

	models := sortedIDs(build(), Spec{Column: ColumnCPUModel, Order: Asc})
	if diff := cmp.Diff([]string{"n100", "i5", "i7", "xeon", "i3bare"}, models); diff != "" {
		t.Fatalf("cpu model asc mismatch (-want +got):\n%s", diff)
	}
	modelsDesc := sortedIDs(build(), Spec{Column: ColumnCPUModel, Order: Desc})
	if diff := cmp.Diff([]string{"xeon", "i3bare", "i7", "i5", "n100"}, modelsDesc); diff != "" {
		t.Fatalf("cpu model desc mismatch (-want +got):\n%s", diff)
	}
}

func TestSpecToggle(t *testing.T) {
	s := DefaultSpec()
	assert.Equal(t, Spec{Column: ColumnPrice, Order: Asc}, s)

	s = s.Toggle(ColumnPrice)
	assert.Equal(t, Spec{Column: ColumnPrice, Order: Desc}, s)

	s = s.Toggle(ColumnTCO)
	assert.Equal(t, Spec{Column: ColumnTCO, Order: Asc}, s)

	s = s.Toggle(ColumnTCO).Toggle(ColumnTCO)
	assert.Equal(t, Spec{Column: ColumnTCO, Order: Asc}, s)
}

func TestParseColumnAndOrder(t *testing.T) {
	c, err := ParseColumn(" Performance_Per_Dollar ")
	require.NoError(t, err)
	assert.Equal(t, ColumnPerformancePerDollar, c)

	_, err = ParseColumn("image_url")
	assert.Error(t, err)

	o, err := ParseOrder("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, o)

	_, err = ParseOrder("sideways")
	assert.Error(t, err)
}
