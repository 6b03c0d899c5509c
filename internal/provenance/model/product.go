// Package model holds the domain types the provenance core exposes to its
// callers. They are plain value objects with no back-references; once mapped
// from a ledger reply they are safe to share freely.
package model

import "time"

// Product is an immutable ledger-registered product. The ledger assigns the
// id at creation; the batch number is the externally-facing lookup key and
// must stay unique among active products.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	BatchNumber  string `json:"batch_number"`
	// ProductionDate is seconds since epoch.
	ProductionDate int64 `json:"production_date"`
	// ProductionDateEstimated marks a production date the decode path could
	// not surface from the ledger and substituted with the capture time.
	// Callers that care about provenance fidelity should display the
	// substitution rather than presenting it as ledger data.
	ProductionDateEstimated bool     `json:"production_date_estimated,omitempty"`
	Ingredients             []string `json:"ingredients"`
	Certifications          []string `json:"certifications"`
}

// ProducedAt returns the production date as wall-clock time.
func (p Product) ProducedAt() time.Time {
	return time.Unix(p.ProductionDate, 0).UTC()
}

// CreateProductInput carries the caller-supplied fields of the ledger's
// create operation.
type CreateProductInput struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	Manufacturer   string   `json:"manufacturer"`
	BatchNumber    string   `json:"batch_number" binding:"required"`
	Ingredients    []string `json:"ingredients"`
	Certifications []string `json:"certifications"`
}

// Validate checks the fields the ledger itself will not reject but the core
// requires for a usable record.
func (in CreateProductInput) Validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.BatchNumber == "" {
		return &ValidationError{Field: "batch_number", Reason: "must not be empty"}
	}
	return nil
}
