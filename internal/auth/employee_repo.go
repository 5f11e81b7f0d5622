package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoEmployee = errors.New("user has no employee record")

type EmployeeRepo struct{ DB *pgxpool.Pool }

// FindByUser returns the principal for a user through its employee record.
func (r *EmployeeRepo) FindByUser(ctx context.Context, userID int64) (Principal, error) {
	p := Principal{UserID: userID}
	err := r.DB.QueryRow(ctx, `
		SELECT u.username, e.company_id
		FROM employees e JOIN users u ON u.id = e.user_id
		WHERE e.user_id=$1`, userID,
	).Scan(&p.Username, &p.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, ErrNoEmployee
	}
	if err != nil {
		return Principal{}, err
	}
	return p, nil
}
