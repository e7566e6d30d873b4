package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

type csvRow struct {
	Name      string
	Category  string
	Price     float64
	Quantity  int
	Threshold int
}

func parseCSV(file io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header")
	}

	index := map[string]int{}
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"name", "price", "quantity"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	field := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %v", err)
		}

		rows = append(rows, csvRow{
			Name:      field(record, "name"),
			Category:  field(record, "category"),
			Price:     parseFloat(field(record, "price")),
			Quantity:  parseInt(field(record, "quantity")),
			Threshold: parseInt(field(record, "threshold")),
		})
	}
	return rows, nil
}

func validateRow(r csvRow) error {
	if r.Name == "" {
		return errors.New("missing name")
	}
	if r.Price <= 0 {
		return errors.New("invalid price")
	}
	if r.Quantity < 0 {
		return errors.New("invalid quantity")
	}
	if r.Threshold < 0 {
		return errors.New("invalid threshold")
	}
	return nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// ImportProductsHandler godoc
// @Summary Import products via CSV
// @Description Columns: name, price, quantity and optionally category, threshold. In update mode the stock of existing products is corrected to the CSV quantity through a logged adjustment.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Param mode query string false "Import mode (skip|update)"
// @Success 200 {object} ImportProductsResult
// @Failure 400 {string} string "Invalid file"
// @Failure 500 {string} string "Internal error"
// @Router /products/import [post]
func ImportProductsHandler(w http.ResponseWriter, r *http.Request) {
	mode := strings.ToLower(r.URL.Query().Get("mode"))
	if mode != "update" {
		mode = "skip" // default
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	records, err := parseCSV(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var imported int
	errorsList := []ProductValidationError{}
	rowError := func(rowNum int, format string, args ...any) {
		errorsList = append(errorsList, ProductValidationError{
			Description: fmt.Sprintf("row %d: ", rowNum) + fmt.Sprintf(format, args...),
		})
	}

	for i, rec := range records {
		rowNum := i + 2 // header is row 1

		if err := validateRow(rec); err != nil {
			rowError(rowNum, "%v", err)
			continue
		}

		existing, err := productRepo.GetByName(ctx, rec.Name)
		if err == nil {
			if mode == "skip" {
				rowError(rowNum, "product '%s' already exists", rec.Name)
				continue
			}
			existing.Price = rec.Price
			existing.Threshold = rec.Threshold
			if rec.Category != "" {
				existing.Category = rec.Category
			}
			if _, err := productRepo.Update(ctx, existing); err != nil {
				rowError(rowNum, "failed to update '%s'", rec.Name)
				continue
			}
			if _, err := engine.SetStock(ctx, existing.ID, rec.Quantity, models.ReasonAdjust); err != nil {
				rowError(rowNum, "failed to adjust stock of '%s': %v", rec.Name, err)
				continue
			}
			imported++
			continue
		}
		if !errors.Is(err, repo.ErrProductNotFound) {
			rowError(rowNum, "lookup failed for '%s'", rec.Name)
			continue
		}

		if _, err := createWithStock(ctx, models.Product{
			Name:      rec.Name,
			Category:  rec.Category,
			Price:     rec.Price,
			Quantity:  rec.Quantity,
			Threshold: rec.Threshold,
		}); err != nil {
			rowError(rowNum, "%v", err)
			continue
		}
		imported++
	}

	err = writeJSON(w, http.StatusOK, ImportProductsResult{
		ImportedProductsCount: imported,
		Errors:                errorsList,
	})

	if err != nil {
		http.Error(w, "", http.StatusInternalServerError)
	}
}
