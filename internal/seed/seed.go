// Package seed loads tenants and documents from a YAML file.
//
// The format mirrors the record columns:
//
//	tenants:
//	  - id: acme
//	    name: Acme Ltd
//	records:
//	  - kind: invoice
//	    tenant: acme
//	    number: INV-001
//	    counterparty: Globex
//	    date: 2025-01-10
//	    due_date: 2025-02-10
//	    status: paid
//	    total: "500"
//	    paid_amount: "500"
//	    created_at: 2025-01-10T09:00:00Z
package seed

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ledgerview/internal/core"
)

type Data struct {
	Tenants []core.Tenant
	Records []core.Record
}

type fileTenant struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type fileRecord struct {
	Kind          string    `yaml:"kind"`
	Tenant        string    `yaml:"tenant"`
	Owner         string    `yaml:"owner"`
	Number        string    `yaml:"number"`
	Counterparty  string    `yaml:"counterparty"`
	Category      string    `yaml:"category"`
	Date          string    `yaml:"date"`
	DueDate       string    `yaml:"due_date"`
	Status        string    `yaml:"status"`
	PaymentMethod string    `yaml:"payment_method"`
	Total         string    `yaml:"total"`
	PaidAmount    string    `yaml:"paid_amount"`
	CreatedAt     time.Time `yaml:"created_at"`
}

type file struct {
	Tenants []fileTenant `yaml:"tenants"`
	Records []fileRecord `yaml:"records"`
}

// Load reads a seed file. A missing file is not an error and yields empty Data.
func Load(path string) (Data, error) {
	if path == "" {
		return Data{}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Data{}, nil
	}
	if err != nil {
		return Data{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses seed YAML from r.
func Decode(r io.Reader) (Data, error) {
	var raw file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Data{}, fmt.Errorf("parse seed file: %w", err)
	}

	var out Data
	for _, t := range raw.Tenants {
		out.Tenants = append(out.Tenants, core.Tenant{ID: t.ID, Name: t.Name})
	}
	for i, fr := range raw.Records {
		rec, err := fr.toRecord()
		if err != nil {
			return Data{}, fmt.Errorf("seed record %d (%s): %w", i, fr.Number, err)
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func (fr fileRecord) toRecord() (core.Record, error) {
	kind, err := core.ParseKind(fr.Kind)
	if err != nil {
		return core.Record{}, err
	}
	date, err := core.ParseDate(fr.Date)
	if err != nil {
		return core.Record{}, err
	}
	due, err := core.ParseDate(fr.DueDate)
	if err != nil {
		return core.Record{}, err
	}
	rec := core.Record{
		Kind:          kind,
		TenantID:      fr.Tenant,
		OwnerID:       fr.Owner,
		Number:        fr.Number,
		Counterparty:  fr.Counterparty,
		Category:      fr.Category,
		Date:          date,
		DueDate:       due,
		Status:        fr.Status,
		PaymentMethod: fr.PaymentMethod,
		CreatedAt:     fr.CreatedAt,
	}
	if fr.Total != "" {
		if rec.Total, err = core.ParseAmount(fr.Total); err != nil {
			return core.Record{}, fmt.Errorf("total: %w", err)
		}
	}
	if fr.PaidAmount != "" {
		if rec.PaidAmount, err = core.ParseAmount(fr.PaidAmount); err != nil {
			return core.Record{}, fmt.Errorf("paid_amount: %w", err)
		}
	}
	return rec, nil
}
