package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/store"
)

type customerDTO struct {
	ID          string   `json:"id"`
	Phone       string   `json:"phone"`
	DisplayName string   `json:"display_name"`
	Locale      string   `json:"locale"`
	Tags        []string `json:"tags,omitempty"`
}

func toCustomerDTO(cust *store.Customer) customerDTO {
	return customerDTO{ID: cust.ID, Phone: cust.Phone, DisplayName: cust.DisplayName, Locale: cust.Locale, Tags: cust.Tags}
}

func (s *Server) listCustomers(c echo.Context) error {
	tc := TenantContext(c)
	limit := parseIntDefault(c.QueryParam("limit"), 50)
	offset := parseIntDefault(c.QueryParam("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	customers, err := s.store.ListCustomers(c.Request().Context(), tc.TenantID, limit, offset)
	if err != nil {
		return err
	}
	out := make([]customerDTO, 0, len(customers))
	for _, cust := range customers {
		out = append(out, toCustomerDTO(cust))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getCustomer(c echo.Context) error {
	tc := TenantContext(c)
	id := c.Param("id")
	cust, err := s.store.FindCustomer(c.Request().Context(), &store.FindCustomer{TenantID: tc.TenantID, ID: &id})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerDTO(cust))
}

type updateCustomerRequest struct {
	DisplayName *string  `json:"display_name"`
	Locale      *string  `json:"locale"`
	Tags        *[]string `json:"tags"`
}

func (s *Server) updateCustomer(c echo.Context) error {
	tc := TenantContext(c)
	var req updateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return errs.InputInvalid("malformed request body", err)
	}

	updated, err := s.store.UpdateCustomer(c.Request().Context(), &store.UpdateCustomer{
		TenantID:    tc.TenantID,
		ID:          c.Param("id"),
		DisplayName: req.DisplayName,
		Locale:      req.Locale,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerDTO(updated))
}
