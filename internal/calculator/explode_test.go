package calculator

import (
	"math"
	"reflect"
	"testing"

	"github.com/annafiu/twabillsplitter/internal/models"
)

func TestExplode(t *testing.T) {
	items := []models.ReceiptItem{
		{ID: "x", Name: "Nasi Goreng", Price: 50000, Quantity: 2},
		{ID: "y", Name: "Es Jeruk", Price: 8000, Quantity: 1},
	}

	got := Explode(items)

	want := []models.ReceiptItem{
		{ID: "x-1", Name: "Nasi Goreng (1/2)", Price: 25000, Quantity: 1},
		{ID: "x-2", Name: "Nasi Goreng (2/2)", Price: 25000, Quantity: 1},
		{ID: "y", Name: "Es Jeruk", Price: 8000, Quantity: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Explode() = %+v\nwant %+v", got, want)
	}
	if items[0].Quantity != 2 {
		t.Error("Explode mutated its input")
	}
}

func TestExplode_Idempotent(t *testing.T) {
	items := []models.ReceiptItem{
		{ID: "x", Name: "Sate", Price: 45000, Quantity: 3},
		{ID: "y", Name: "Teh", Price: 5000, Quantity: 1},
	}

	once := Explode(items)
	twice := Explode(once)

	if !IsExploded(once) {
		t.Fatal("expected exploded list to have quantity 1 everywhere")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second Explode changed the list:\n%+v\n%+v", once, twice)
	}
}

func TestExplode_ConservesPrice(t *testing.T) {
	for _, tc := range []struct {
		price float64
		qty   int
	}{
		{10000, 3},
		{99999, 7},
		{12500.5, 4},
		{1, 9},
		{-3000, 2},
	} {
		exploded := Explode([]models.ReceiptItem{{ID: "i", Name: "Item", Price: tc.price, Quantity: tc.qty}})
		if len(exploded) != tc.qty {
			t.Fatalf("price %v qty %d: got %d units", tc.price, tc.qty, len(exploded))
		}
		var sum float64
		for _, item := range exploded {
			sum += item.Price
		}
		if math.Abs(sum-tc.price) > 1e-6 {
			t.Errorf("price %v qty %d: unit sum = %v", tc.price, tc.qty, sum)
		}
	}
}

func TestExplode_DegenerateInput(t *testing.T) {
	got := Explode([]models.ReceiptItem{
		{ID: "z", Name: "Zero qty", Price: 7000, Quantity: 0},
		{ID: "n", Name: "No price", Price: math.NaN(), Quantity: 2},
	})

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Quantity != 1 || got[0].Price != 7000 || got[0].ID != "z" {
		t.Errorf("zero quantity item = %+v", got[0])
	}
	for _, item := range got[1:] {
		if item.Price != 0 {
			t.Errorf("%s price = %v, want 0", item.ID, item.Price)
		}
	}
}

func TestExplode_Empty(t *testing.T) {
	if got := Explode(nil); len(got) != 0 {
		t.Errorf("Explode(nil) = %v", got)
	}
}

func TestExplode_DerivedIDsAreUnique(t *testing.T) {
	got := Explode([]models.ReceiptItem{
		{ID: "a", Name: "Nasi", Price: 20000, Quantity: 2},
		{ID: "a-1", Name: "Teh", Price: 5000, Quantity: 1},
		{ID: "a-1", Name: "Sate", Price: 30000, Quantity: 2},
	})

	wantIDs := []string{"a-2", "a-3", "a-1", "a-1-1", "a-1-2"}
	if len(got) != len(wantIDs) {
		t.Fatalf("len = %d, want %d", len(got), len(wantIDs))
	}
	seen := make(map[string]bool)
	for i, item := range got {
		if item.ID != wantIDs[i] {
			t.Errorf("item %d ID = %q, want %q", i, item.ID, wantIDs[i])
		}
		if seen[item.ID] {
			t.Errorf("duplicate ID %q", item.ID)
		}
		seen[item.ID] = true
	}
}
