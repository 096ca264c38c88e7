package models

import "time"

// GuardianRole identifies the responsibility a guardian holds for a student.
type GuardianRole string

const (
	RoleFinanceiro GuardianRole = "FINANCEIRO"
	RolePedagogico GuardianRole = "PEDAGOGICO"
)

// GuardianType tags which field groups of a guardian row are populated.
type GuardianType string

const (
	GuardianTypeFinanceiro GuardianType = "FINANCEIRO"
	GuardianTypePedagogico GuardianType = "PEDAGOGICO"
	GuardianTypeAmbos      GuardianType = "AMBOS"
)

// Guardian is a person responsible for one or more students, financially,
// pedagogically or both. The financial and pedagogical field groups are
// independent column sets; Tipo records which of them carry data.
type Guardian struct {
	ID   string       `db:"id" json:"id"`
	Tipo GuardianType `db:"tipo" json:"tipo"`

	FinancialName  *string `db:"financial_name" json:"financial_name,omitempty"`
	FinancialTaxID *string `db:"financial_tax_id" json:"financial_tax_id,omitempty"`
	FinancialEmail *string `db:"financial_email" json:"financial_email,omitempty"`
	FinancialPhone *string `db:"financial_phone" json:"financial_phone,omitempty"`
	PedagogicName  *string `db:"pedagogic_name" json:"pedagogic_name,omitempty"`
	PedagogicTaxID *string `db:"pedagogic_tax_id" json:"pedagogic_tax_id,omitempty"`
	PedagogicEmail *string `db:"pedagogic_email" json:"pedagogic_email,omitempty"`
	PedagogicPhone *string `db:"pedagogic_phone" json:"pedagogic_phone,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AddressType distinguishes guardian address records.
type AddressType string

// AddressTypeResidential is the only type the importer writes.
const AddressTypeResidential AddressType = "RESIDENTIAL"

// Address is a one-to-one sub-record of a guardian.
type Address struct {
	ID         string      `db:"id" json:"id"`
	GuardianID string      `db:"guardian_id" json:"guardian_id"`
	Type       AddressType `db:"type" json:"type"`
	Street     string      `db:"street" json:"street"`
	Number     string      `db:"number" json:"number"`
	District   string      `db:"district" json:"district"`
	City       string      `db:"city" json:"city"`
	State      string      `db:"state" json:"state"`
	ZipCode    string      `db:"zip_code" json:"zip_code"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// GuardianFilter encapsulates list screen criteria.
type GuardianFilter struct {
	Tipo      GuardianType
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
