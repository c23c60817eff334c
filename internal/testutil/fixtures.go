package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// FixtureItem creates a warehouse item with sensible defaults.
func FixtureItem(overrides ...func(*models.Item)) *models.Item {
	id := fmt.Sprintf("MAT-%s", strings.ToUpper(gofakeit.LetterN(4)))

	item := &models.Item{
		ID:              id,
		Nazwa:           gofakeit.ProductName(),
		Typ:             "materiał",
		Jednostka:       "kg",
		WspKonwersji:    1,
		Stan:            10,
		MinPoziom:       0,
		ProgiAlertowPct: []float64{100},
		Historia:        []models.HistoryEntry{},
	}

	for _, override := range overrides {
		override(item)
	}

	return item
}

// FixturePieceItem creates an item counted in pieces.
func FixturePieceItem(overrides ...func(*models.Item)) *models.Item {
	return FixtureItem(append([]func(*models.Item){
		func(i *models.Item) {
			i.Typ = "komponent"
			i.Jednostka = "szt"
		},
	}, overrides...)...)
}

// FixtureUser creates an active roster user.
func FixtureUser(overrides ...func(*models.User)) *models.User {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()

	user := &models.User{
		Login:    strings.ToLower(first[:1] + last),
		Imie:     first,
		Nazwisko: last,
		Rola:     "operator",
		Zmiana:   "I",
		PIN:      gofakeit.DigitN(4),
	}

	for _, override := range overrides {
		override(user)
	}

	return user
}

// FixtureInactiveUser creates a deactivated roster user.
func FixtureInactiveUser(overrides ...func(*models.User)) *models.User {
	return FixtureUser(append([]func(*models.User){
		func(u *models.User) { u.Aktywny = BoolPtr(false) },
	}, overrides...)...)
}

// FixtureProduct creates a product variant with one semi-product.
func FixtureProduct(kod string, overrides ...func(*models.Product)) *models.Product {
	rev := models.FlexInt(1)

	product := &models.Product{
		Kod:         kod,
		Nazwa:       gofakeit.ProductName(),
		Version:     "1",
		BOMRevision: &rev,
		Polprodukty: []models.ProductPart{FixtureProductPart("PP-" + kod)},
	}

	for _, override := range overrides {
		override(product)
	}

	return product
}

// FixtureProductPart creates a valid semi-product requirement.
func FixtureProductPart(kod string) models.ProductPart {
	return models.ProductPart{
		Kod:        kod,
		IloscNaSzt: Float64Ptr(1),
		Czynnosci:  []string{"cięcie"},
		Surowiec:   &models.PartMaterial{Typ: "pręt", Dlugosc: Float64Ptr(100)},
	}
}

// FixtureSemiProduct creates a semi-product consuming one raw material.
func FixtureSemiProduct(kod, surowiec string, overrides ...func(*models.SemiProduct)) *models.SemiProduct {
	semi := &models.SemiProduct{
		Kod:   kod,
		Nazwa: gofakeit.ProductName(),
		Surowiec: models.SemiMaterial{
			Kod:        surowiec,
			IloscNaSzt: 1,
			Jednostka:  "mb",
		},
		Czynnosci: []string{"cięcie", "gięcie"},
	}

	for _, override := range overrides {
		override(semi)
	}

	return semi
}

// FixturePresence creates a heartbeat record taken at ts.
func FixturePresence(login string, ts time.Time, overrides ...func(*models.PresenceRecord)) *models.PresenceRecord {
	rec := &models.PresenceRecord{
		Login:   login,
		Role:    "operator",
		Machine: gofakeit.Username(),
		TS:      ts.UTC().Format(time.RFC3339),
	}

	for _, override := range overrides {
		override(rec)
	}

	return rec
}

// StringPtr returns a pointer to a string value.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(b bool) *bool {
	return &b
}

// Float64Ptr returns a pointer to a float64 value.
func Float64Ptr(f float64) *float64 {
	return &f
}

// TimePtr returns a pointer to a time value.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// IntPtr returns a pointer to an int value.
func IntPtr(i int) *int {
	return &i
}
