package dto

import (
	"time"

	"facturard/internal/core/id"
	"facturard/internal/domain/customers"
)

// CreateCustomerRequest for creating a customer.
type CreateCustomerRequest struct {
	TaxID   string `json:"taxId" binding:"omitempty,taxid"`
	Name    string `json:"name" binding:"required,max=250"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone" binding:"max=50"`
	Address string `json:"address" binding:"max=500"`
}

// ToCustomer builds the domain entity. The owner is set by the service.
func (r *CreateCustomerRequest) ToCustomer() *customers.Customer {
	c := customers.NewCustomer(id.Nil(), r.TaxID, r.Name)
	c.Email = r.Email
	c.Phone = r.Phone
	c.Address = r.Address
	return c
}

// UpdateCustomerRequest replaces a customer's editable fields.
type UpdateCustomerRequest struct {
	CreateCustomerRequest
	Version int `json:"version" binding:"required,min=1"`
}

// ToCustomer builds the entity to store under customerID.
func (r *UpdateCustomerRequest) ToCustomer(customerID id.ID) *customers.Customer {
	c := r.CreateCustomerRequest.ToCustomer()
	c.ID = customerID
	c.Version = r.Version
	return c
}

// CustomerResponse is a customer in API responses.
type CustomerResponse struct {
	ID            string     `json:"id"`
	TaxID         string     `json:"taxId,omitempty"`
	TaxIDKind     string     `json:"taxIdKind,omitempty"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Address       string     `json:"address,omitempty"`
	DeletionMark  bool       `json:"deletionMark"`
	LastInvoiceAt *time.Time `json:"lastInvoiceAt,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// FromCustomer creates a response from the domain entity.
func FromCustomer(c *customers.Customer) CustomerResponse {
	resp := CustomerResponse{
		ID:            c.ID.String(),
		TaxID:         c.TaxID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		DeletionMark:  c.DeletionMark,
		LastInvoiceAt: c.LastInvoiceAt,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.TaxID != "" {
		resp.TaxIDKind = c.TaxIDKind().String()
	}
	return resp
}
