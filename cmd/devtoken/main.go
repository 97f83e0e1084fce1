// devtoken emite un JWT firmado con JWT_SECRET para pruebas locales de la API.
//
// Uso: go run ./cmd/devtoken -user <id> -role admin|bodeguero|farmaceutico
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/Inventario-medico/pkg/config"
	"github.com/jhoicas/Inventario-medico/pkg/jwt"
)

func main() {
	userID := flag.String("user", "dev-user", "user_id del token")
	role := flag.String("role", jwt.RoleAdmin, "rol: admin, bodeguero o farmaceutico")
	flag.Parse()

	switch *role {
	case jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleFarmaceutico:
	default:
		fmt.Fprintf(os.Stderr, "rol desconocido: %s\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Env == "production" {
		fmt.Fprintln(os.Stderr, "devtoken no se usa en producción")
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
