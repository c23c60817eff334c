// Package bom resolves product definitions and expands them into
// semi-product and raw material requirements.
package bom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// MissingKeyError reports a semi-product entry of a product that lacks a
// required key. Index is the position in polprodukty, or -1 for a
// semi-product definition file.
type MissingKeyError struct {
	Kod   string
	Index int
	Key   string
}

func (e *MissingKeyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: missing key %q", e.Kod, e.Key)
	}
	return fmt.Sprintf("%s: polprodukty[%d]: missing key %q", e.Kod, e.Index, e.Key)
}

func (e *MissingKeyError) Unwrap() error {
	return models.ErrValidation
}

// Selector narrows the product variants considered. Zero values mean "any".
type Selector struct {
	Version     string
	BOMRevision *int
	AtDate      *time.Time
}

// PartRequirement is the expansion of one semi-product for a product order.
type PartRequirement struct {
	Ilosc     float64             `json:"ilosc"`
	Czynnosci []string            `json:"czynnosci"`
	Surowiec  models.PartMaterial `json:"surowiec"`
}

// MaterialRequirement is the total raw material needed.
type MaterialRequirement struct {
	Ilosc     float64 `json:"ilosc"`
	Jednostka string  `json:"jednostka"`
}

// Options configures a Resolver.
type Options struct {
	Logger zerolog.Logger
}

// Resolver reads product and semi-product definitions from disk.
type Resolver struct {
	productsDir string
	semiDir     string
	log         zerolog.Logger
	validate    *validator.Validate
}

// New creates a resolver over the products and semi-products directories.
func New(productsDir, semiDir string, opts Options) *Resolver {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Resolver{
		productsDir: productsDir,
		semiDir:     semiDir,
		log:         opts.Logger.With().Str("component", "bom").Logger(),
		validate:    v,
	}
}

// ============================================================================
// PRODUCTS
// ============================================================================

// ListProducts returns every readable product variant in directory order.
func (r *Resolver) ListProducts() ([]models.Product, error) {
	entries, err := os.ReadDir(r.productsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading products directory: %w", err)
	}

	var out []models.Product
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "_") {
			continue
		}
		path := filepath.Join(r.productsDir, name)

		var p models.Product
		if err := jsonio.Read(path, &p); err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable product file")
			continue
		}
		p.Source = path
		out = append(out, p)
	}
	return out, nil
}

// Select returns the effective variant of product kod. Candidates are
// filtered by revision, version and effective date; among the survivors an
// explicit version match wins, then the default variant, then the first file
// in directory order.
func (r *Resolver) Select(kod string, sel Selector) (*models.Product, error) {
	all, err := r.ListProducts()
	if err != nil {
		return nil, err
	}

	kod = strings.TrimSpace(kod)
	var survivors []models.Product
	for _, p := range all {
		if strings.TrimSpace(p.Kod) != kod {
			continue
		}
		if sel.BOMRevision != nil && (p.BOMRevision == nil || int(*p.BOMRevision) != *sel.BOMRevision) {
			continue
		}
		if sel.Version != "" && strings.TrimSpace(string(p.Version)) != strings.TrimSpace(sel.Version) {
			continue
		}
		if sel.AtDate != nil && !r.effectiveAt(p, *sel.AtDate) {
			continue
		}
		survivors = append(survivors, p)
	}

	if len(survivors) == 0 {
		return nil, fmt.Errorf("product %s: no variant matches: %w", kod, models.ErrNotFound)
	}

	chosen := survivors[0]
	if sel.Version == "" {
		for _, p := range survivors {
			if p.IsDefault {
				chosen = p
				break
			}
		}
	}

	if err := r.validateParts(&chosen); err != nil {
		return nil, err
	}
	return &chosen, nil
}

// effectiveAt reports whether at falls in [effective_from, effective_to].
// A missing bound is open; an unreadable bound excludes the variant.
func (r *Resolver) effectiveAt(p models.Product, at time.Time) bool {
	day := util.FormatDate(at)

	bound := func(s *string) (string, bool) {
		if s == nil || strings.TrimSpace(*s) == "" {
			return "", true
		}
		t, err := util.ParseDate(strings.TrimSpace(*s))
		if err != nil {
			r.log.Warn().Str("path", p.Source).Str("value", *s).Msg("unreadable effective date")
			return "", false
		}
		return util.FormatDate(t), true
	}

	from, ok := bound(p.EffectiveFrom)
	if !ok || (from != "" && day < from) {
		return false
	}
	to, ok := bound(p.EffectiveTo)
	if !ok || (to != "" && day > to) {
		return false
	}
	return true
}

func (r *Resolver) validateParts(p *models.Product) error {
	for i := range p.Polprodukty {
		err := r.validate.Struct(p.Polprodukty[i])
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return fmt.Errorf("validating %s polprodukty[%d]: %w", p.Kod, i, err)
		}
		return &MissingKeyError{Kod: p.Kod, Index: i, Key: fieldKey(verrs[0])}
	}
	return nil
}

// fieldKey strips the struct name from a namespace such as
// "ProductPart.surowiec.typ".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// ============================================================================
// SEMI-PRODUCTS
// ============================================================================

// SemiProduct reads polprodukty/<kod>.json.
func (r *Resolver) SemiProduct(kod string) (*models.SemiProduct, error) {
	path := filepath.Join(r.semiDir, kod+".json")

	var pp models.SemiProduct
	if err := jsonio.Read(path, &pp); err != nil {
		if errors.Is(err, jsonio.ErrMissing) {
			return nil, fmt.Errorf("semi-product %s: %w", kod, models.ErrNotFound)
		}
		return nil, fmt.Errorf("reading semi-product %s: %w", kod, err)
	}
	if pp.Kod == "" {
		pp.Kod = kod
	}
	if strings.TrimSpace(pp.Surowiec.Kod) == "" {
		return nil, &MissingKeyError{Kod: kod, Index: -1, Key: "surowiec.kod"}
	}
	return &pp, nil
}
