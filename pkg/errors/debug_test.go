package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpCarriesCodeReasonAndChain(t *testing.T) {
	root := stdErrors.New("stock read failed")
	err := fmt.Errorf("add item: %w", Wrap(CodeAvailability, root, "not enough stock").WithReason("insufficient_stock"))

	d := Dump(err)
	if d.Code != CodeAvailability || d.Reason != "insufficient_stock" {
		t.Fatalf("unexpected code/reason: %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	if d.PG != nil {
		t.Fatalf("expected no pg details, got %+v", d.PG)
	}
}

func TestDumpExtractsPostgresDetailsFromBothDrivers(t *testing.T) {
	cases := map[string]error{
		"pgx": &pgconn.PgError{Code: "23505", ConstraintName: "ux_carts_user_id", TableName: "carts"},
		"pq":  &pq.Error{Code: "23505", Constraint: "ux_carts_user_id", Table: "carts"},
	}
	for name, driverErr := range cases {
		t.Run(name, func(t *testing.T) {
			d := Dump(Wrap(CodeInternal, driverErr, "insert cart"))
			if d.PG == nil {
				t.Fatal("expected pg details")
			}
			if d.PG.Code != "23505" || d.PG.Constraint != "ux_carts_user_id" || d.PG.Table != "carts" {
				t.Fatalf("unexpected pg details: %+v", d.PG)
			}
		})
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.PG != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
