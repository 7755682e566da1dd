package product

import "time"

// Product keeps the catalog wire names: productID, nombre, descripcion, categoria, precio.
type Product struct {
	ID          string    `json:"id"`
	ProductCode string    `json:"productID"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	Category    string    `json:"categoria"`
	Price       float64   `json:"precio"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProductInput struct {
	ProductCode string  `json:"productID"`
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	Category    string  `json:"categoria"`
	Price       float64 `json:"precio"`
}
