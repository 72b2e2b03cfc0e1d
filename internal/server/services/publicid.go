package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/users"
)

// PublicID formats a principal's public identifier: "UID-", the UTC day of
// year, (year*58) mod 1000, and the principal's 1-based ordinal within the
// month it was created in. Each part is zero-padded to three digits.
func PublicID(createdAt time.Time, ordinal int) string {
	t := createdAt.UTC()
	return fmt.Sprintf("UID-%03d%03d%03d", t.YearDay(), (t.Year()*58)%1000, ordinal)
}

func assignPublicID(ctx context.Context, repo users.Repository, u *models.User) error {
	n, err := repo.NextMonthOrdinal(ctx, u.CreatedAt)
	if err != nil {
		return err
	}
	id := PublicID(u.CreatedAt, n)
	if err := repo.SetPublicID(ctx, u.ID, id); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.Transient("Failed to assign public id", err)
		}
		return err
	}
	u.PublicID = id
	return nil
}
