// Package docs registra la especificación OpenAPI (swag) que sirve el Swagger UI en /docs.
package docs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerTemplate string

// SwaggerInfo metadatos exportados de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Stock Ledger API",
	Description:      "Ledger de movimientos de inventario y creación transaccional de pedidos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// WriteSpec escribe la especificación en dir y devuelve la ruta (el middleware de Swagger lee un archivo).
func WriteSpec(dir string) (string, error) {
	path := filepath.Join(dir, "stock-ledger-swagger.json")
	if err := os.WriteFile(path, []byte(SwaggerInfo.ReadDoc()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
