package handlers

import (
	"net/url"
	"strings"
)

type ProductValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func validateProduct(p ProductRequest) []ProductValidationError {
	errs := []ProductValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ProductValidationError{Field: "Name", Description: "Name is required"})
	}
	if p.Price <= 0 {
		errs = append(errs, ProductValidationError{Field: "Price", Description: "Price must be greater than zero"})
	}
	if p.Quantity < 0 {
		errs = append(errs, ProductValidationError{Field: "Quantity", Description: "Quantity cannot be negative"})
	}
	if p.Threshold < 0 {
		errs = append(errs, ProductValidationError{Field: "Threshold", Description: "Threshold cannot be negative"})
	}
	if p.ImageURL != "" {
		if u, err := url.Parse(p.ImageURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ProductValidationError{Field: "ImageURL", Description: "ImageURL must be an absolute URL"})
		}
	}
	return errs
}
