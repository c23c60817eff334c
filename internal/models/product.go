package models

// Product is one file variant of a finished product definition.
type Product struct {
	Kod           string        `json:"kod"`
	Nazwa         string        `json:"nazwa"`
	Version       FlexString    `json:"version"`
	BOMRevision   *FlexInt      `json:"bom_revision"`
	EffectiveFrom *string       `json:"effective_from"`
	EffectiveTo   *string       `json:"effective_to"`
	IsDefault     bool          `json:"is_default"`
	Polprodukty   []ProductPart `json:"polprodukty"`

	// Source is the file the variant was read from.
	Source string `json:"-"`
}

// ProductPart is a semi-product requirement of a product.
type ProductPart struct {
	Kod        string        `json:"kod" validate:"required"`
	IloscNaSzt *float64      `json:"ilosc_na_szt" validate:"required,gt=0"`
	Czynnosci  []string      `json:"czynnosci" validate:"required,min=1"`
	Surowiec   *PartMaterial `json:"surowiec" validate:"required"`
}

// PartMaterial is the raw stock cut for a semi-product.
type PartMaterial struct {
	Typ     string   `json:"typ" validate:"required"`
	Dlugosc *float64 `json:"dlugosc" validate:"required"`
}

// SemiProduct is a semi-finished good made from one raw material.
type SemiProduct struct {
	Kod            string       `json:"kod"`
	Nazwa          string       `json:"nazwa"`
	Surowiec       SemiMaterial `json:"surowiec"`
	Czynnosci      []string     `json:"czynnosci"`
	NormaStratProc float64      `json:"norma_strat_proc"`
}

// SemiMaterial is the raw material consumption per semi-product unit.
type SemiMaterial struct {
	Kod        string  `json:"kod"`
	IloscNaSzt float64 `json:"ilosc_na_szt"`
	Jednostka  string  `json:"jednostka"`
}

// RawMaterial is a catalog entry of a raw material.
type RawMaterial struct {
	Kod        string  `json:"kod"`
	Nazwa      string  `json:"nazwa"`
	Jednostka  string  `json:"jednostka"`
	Stan       float64 `json:"stan"`
	ProgAlertu float64 `json:"prog_alertu"`
}
