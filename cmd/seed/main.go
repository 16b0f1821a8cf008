// seed inserts the demo company and sample data for local testing: go run ./cmd/seed.
// Idempotent: skips inserts if the demo manager (joao@empresa.com) already exists.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/config"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/db"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
)

const managerEmail = "joao@empresa.com"

type seedUser struct {
	name, email, role, phone string
}

var users = []seedUser{
	{"João Silva", managerEmail, "gestor", "(11) 99999-0001"},
	{"Maria Santos", "maria@empresa.com", "vendedor", "(11) 99999-0002"},
	{"Pedro Costa", "pedro@empresa.com", "vendedor", "(11) 99999-0003"},
}

type seedSale struct {
	seller            int // index into users
	product, category string
	value, rate       string
	customer          string
	daysAgo           int
}

var sales = []seedSale{
	{1, "Plano Premium", "Software", "2500.00", "10", "Tech Solutions Ltda", 1},
	{1, "Consultoria", "Serviços", "1800.00", "8", "Comércio Alfa", 4},
	{2, "Plano Básico", "Software", "900.00", "10", "Padaria Central", 2},
	{2, "Treinamento", "Serviços", "1200.00", "5", "Escola Nova", 20},
	{1, "Plano Enterprise", "Software", "7400.00", "12", "Grupo Beta", 35},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.HTTPTimeout())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var existing int64
	err = conn.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, managerEmail).Scan(&existing)
	if err == nil {
		log.Printf("Seed already applied (%s exists). Skipping.", managerEmail)
		os.Exit(0)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("seed check: %v", err)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.HashPassword(cfg.DemoPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	var companyID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO companies (name, subdomain, plan_type, max_users) VALUES ($1, $2, $3, $4) RETURNING id`,
		"Empresa Demo", "demo", "premium", 25).Scan(&companyID); err != nil {
		log.Fatalf("create company: %v", err)
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (company_id, name, email, role, phone, password_hash)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			companyID, u.name, u.email, u.role, u.phone, passwordHash).Scan(&ids[i]); err != nil {
			log.Fatalf("create user %s: %v", u.email, err)
		}
	}

	now := time.Now().UTC()
	hundred := decimal.NewFromInt(100)
	for _, s := range sales {
		value := decimal.RequireFromString(s.value)
		rate := decimal.RequireFromString(s.rate)
		commission := value.Mul(rate).Div(hundred).Round(2)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sales (company_id, user_id, product_name, product_category, value,
			   commission_rate, commission_value, customer_name, sale_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			companyID, ids[s.seller], s.product, s.category, value.String(), rate.String(),
			commission.String(), s.customer, now.AddDate(0, 0, -s.daysAgo)); err != nil {
			log.Fatalf("create sale %s: %v", s.product, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blog_posts (company_id, author_id, title, content, excerpt, is_pinned)
		 VALUES ($1, $2, $3, $4, $5, TRUE)`,
		companyID, ids[0], "Bem-vindos ao hub da equipe",
		"Aqui vamos compartilhar metas, novidades e boas práticas de vendas.",
		"Aqui vamos compartilhar metas, novidades e boas práticas de vendas."); err != nil {
		log.Fatalf("create post: %v", err)
	}

	messages := []struct {
		from, to int
		text     string
		read     bool
	}{
		{0, 1, "Parabéns pela venda de hoje!", true},
		{1, 0, "Obrigada! Fechamos o plano premium.", true},
		{0, 2, "Pedro, podemos revisar sua meta amanhã?", false},
	}
	for _, m := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (company_id, sender_id, receiver_id, message, is_read)
			 VALUES ($1, $2, $3, $4, $5)`,
			companyID, ids[m.from], ids[m.to], m.text, m.read); err != nil {
			log.Fatalf("create message: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}

	log.Println("Seed completed successfully.")
	for _, u := range users {
		fmt.Printf("%s login: %s / %s\n", u.role, u.email, cfg.DemoPassword)
	}
}
