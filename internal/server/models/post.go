package models

import (
	"strconv"
	"time"
)

type Post struct {
	ID        int64
	UserID    int64
	Author    string
	Title     string
	Slug      string
	Content   string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
