package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Config struct {
	Seed      int64
	SalesRows int
	StartDate time.Time
	Days      int
}

type Dataset struct {
	Sales    []SalesRow
	Products []ProductRow
	Vehicles []VehicleRow
}

type SalesRow struct {
	ID                   int64    `parquet:"id"`
	SalesDate            string   `parquet:"sales_date"`
	ProductName          string   `parquet:"product_name"`
	Quantity             int64    `parquet:"quantity"`
	UnitPrice            float64  `parquet:"unit_price"`
	TotalCost            float64  `parquet:"total_cost"`
	SalesType            string   `parquet:"sales_type"`
	DeliveryFee          *float64 `parquet:"delivery_fee,optional"`
	DeliveryPlate        *string  `parquet:"delivery_plate,optional"`
	DeliveryDurationMins *int64   `parquet:"delivery_duration_mins,optional"`
	Country              string   `parquet:"country"`
	Region               string   `parquet:"region"`
	City                 string   `parquet:"city"`
	StoreName            string   `parquet:"store_name"`
}

type ProductRow struct {
	ID               int64   `parquet:"id"`
	ProductName      string  `parquet:"product_name"`
	Material         string  `parquet:"material"`
	ProductPrice     float64 `parquet:"product_price"`
	ProductCost      float64 `parquet:"product_cost"`
	TotalProductCost float64 `parquet:"total_product_cost"`
	Country          string  `parquet:"country"`
	Region           string  `parquet:"region"`
	City             string  `parquet:"city"`
}

type VehicleRow struct {
	ID            int64   `parquet:"id"`
	DeliveryPlate string  `parquet:"delivery_plate"`
	VehicleType   string  `parquet:"vehicle_type"`
	VehicleModel  string  `parquet:"vehicle_model"`
	CapacityKG    float64 `parquet:"capacity_kg"`
	Country       string  `parquet:"country"`
	Region        string  `parquet:"region"`
	City          string  `parquet:"city"`
}

type location struct {
	Country string
	Region  string
	City    string
}

var locations = []location{
	{"USA", "West", "San Francisco"},
	{"USA", "East", "New York"},
	{"Germany", "Bavaria", "Munich"},
	{"Germany", "Berlin", "Berlin"},
	{"Japan", "Kanto", "Tokyo"},
	{"UK", "England", "London"},
}

var productSpecs = []struct {
	Name     string
	Material string
	Price    float64
	Cost     float64
}{
	{"Aurora Desk", "oak", 499, 310},
	{"Nimbus Chair", "steel", 189, 95},
	{"Helix Lamp", "aluminum", 79, 32},
	{"Vertex Table", "walnut", 649, 420},
	{"Strata Shelf", "pine", 249, 140},
	{"Orbit Stool", "steel", 99, 48},
	{"Quill Sofa", "fabric", 899, 610},
	{"Crest Cabinet", "maple", 749, 505},
}

var vehicleSpecs = []struct {
	Type     string
	Model    string
	Capacity float64
}{
	{"van", "Transit 350", 1200},
	{"van", "Sprinter 2500", 1400},
	{"truck", "Atego 818", 4200},
}

var storeSuffixes = []string{"Downtown", "Central", "Mall", "Harbor"}

// Generate produces the same dataset for the same config. All randomness
// flows through a single seeded source, so both store profiles load
// identical rows.
func Generate(cfg Config) Dataset {
	cfg = withDefaults(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed))

	products := make([]ProductRow, 0, len(productSpecs)*len(locations))
	var productID int64
	for _, loc := range locations {
		for _, spec := range productSpecs {
			productID++
			batch := 50 + rng.Intn(450)
			products = append(products, ProductRow{
				ID:               productID,
				ProductName:      spec.Name,
				Material:         spec.Material,
				ProductPrice:     spec.Price,
				ProductCost:      spec.Cost,
				TotalProductCost: round2(spec.Cost * float64(batch)),
				Country:          loc.Country,
				Region:           loc.Region,
				City:             loc.City,
			})
		}
	}

	vehicles := make([]VehicleRow, 0, len(vehicleSpecs)*len(locations))
	platesByCity := make(map[string][]string, len(locations))
	var vehicleID int64
	for _, loc := range locations {
		for _, spec := range vehicleSpecs {
			vehicleID++
			plate := fmt.Sprintf("V-%04d", vehicleID)
			vehicles = append(vehicles, VehicleRow{
				ID:            vehicleID,
				DeliveryPlate: plate,
				VehicleType:   spec.Type,
				VehicleModel:  spec.Model,
				CapacityKG:    spec.Capacity,
				Country:       loc.Country,
				Region:        loc.Region,
				City:          loc.City,
			})
			platesByCity[loc.City] = append(platesByCity[loc.City], plate)
		}
	}

	sales := make([]SalesRow, 0, cfg.SalesRows)
	for i := 0; i < cfg.SalesRows; i++ {
		loc := locations[rng.Intn(len(locations))]
		spec := productSpecs[rng.Intn(len(productSpecs))]
		quantity := int64(1 + rng.Intn(8))
		unitPrice := spec.Price
		if rng.Intn(10) == 0 {
			unitPrice = round2(spec.Price * 0.9)
		}
		row := SalesRow{
			ID:          int64(i + 1),
			SalesDate:   cfg.StartDate.AddDate(0, 0, rng.Intn(cfg.Days)).Format("2006-01-02"),
			ProductName: spec.Name,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TotalCost:   round2(unitPrice * float64(quantity)),
			SalesType:   "instore",
			Country:     loc.Country,
			Region:      loc.Region,
			City:        loc.City,
			StoreName:   loc.City + " " + storeSuffixes[rng.Intn(len(storeSuffixes))],
		}
		if rng.Intn(10) < 4 {
			row.SalesType = "delivery"
			fee := round2(5 + rng.Float64()*20)
			plates := platesByCity[loc.City]
			plate := plates[rng.Intn(len(plates))]
			duration := int64(15 + rng.Intn(105))
			row.DeliveryFee = &fee
			row.DeliveryPlate = &plate
			row.DeliveryDurationMins = &duration
		}
		sales = append(sales, row)
	}

	return Dataset{Sales: sales, Products: products, Vehicles: vehicles}
}

func withDefaults(cfg Config) Config {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.SalesRows <= 0 {
		cfg.SalesRows = 5000
	}
	if cfg.StartDate.IsZero() {
		cfg.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if cfg.Days <= 0 {
		cfg.Days = 365
	}
	return cfg
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
