package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const ProfileTable = "profiles"

type profileRow struct {
	ID          string `json:"id"`
	FullName    string `json:"fullname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// FindUserByID looks the profile up in the Supabase profiles table.
func (su *SupabaseRepo) FindUserByID(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	if su.supabaseClient == nil {
		return nil, fmt.Errorf("supabase client is not initialized")
	}

	raw, _, err := su.supabaseClient.From(ProfileTable).
		Select("id,email,fullname,role,phone_number", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: body=%s err=%v", string(raw), err)
	}

	// Supabase returns an array even for single results
	var rows []profileRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user rows: %v", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		return nil, fmt.Errorf("multiple users found for ID %s", id)
	}

	row := rows[0]
	return &User{
		ID:    row.ID,
		Name:  row.FullName,
		Email: row.Email,
		Phone: row.PhoneNumber,
		Role:  row.Role,
	}, nil
}
