package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, uid, name, email, phone, auth_method, is_admin, is_verified,
    otp_hash, otp_created_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Uid,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.AuthMethod,
		&i.IsAdmin,
		&i.IsVerified,
		&i.OtpHash,
		&i.OtpCreatedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByUID = `-- name: GetUserByUID :one
SELECT ` + userColumns + ` FROM users WHERE uid = $1
`

func (q *Queries) GetUserByUID(ctx context.Context, uid string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByUID, uid))
}

const getUserByPhone = `-- name: GetUserByPhone :one
SELECT ` + userColumns + ` FROM users WHERE phone = $1
`

func (q *Queries) GetUserByPhone(ctx context.Context, phone pgtype.Text) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByPhone, phone))
}

const upsertUser = `-- name: UpsertUser :one
INSERT INTO users (uid, name, email, phone, auth_method)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (uid) DO UPDATE SET
    name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END,
    email = CASE WHEN users.email = '' THEN EXCLUDED.email ELSE users.email END,
    updated_at = NOW()
RETURNING ` + userColumns + `
`

type UpsertUserParams struct {
	Uid        string
	Name       string
	Email      string
	Phone      pgtype.Text
	AuthMethod string
}

// UpsertUser creates the user for an identity, or returns the existing row.
// Name and email are filled in only when previously blank.
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	row := q.db.QueryRow(ctx, upsertUser,
		arg.Uid,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.AuthMethod,
	)
	return scanUser(row)
}

const savePhoneOTP = `-- name: SavePhoneOTP :one
INSERT INTO users (uid, phone, auth_method, otp_hash, otp_created_at)
VALUES ($1, $2, 'phone', $3, NOW())
ON CONFLICT (phone) DO UPDATE SET
    otp_hash = EXCLUDED.otp_hash,
    otp_created_at = NOW(),
    updated_at = NOW()
RETURNING ` + userColumns + `
`

type SavePhoneOTPParams struct {
	Uid     string
	Phone   pgtype.Text
	OtpHash pgtype.Text
}

// SavePhoneOTP stores an OTP hash, creating a phone user on first contact.
// Uid is only used when the row is created.
func (q *Queries) SavePhoneOTP(ctx context.Context, arg SavePhoneOTPParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, savePhoneOTP, arg.Uid, arg.Phone, arg.OtpHash))
}

const clearPhoneOTP = `-- name: ClearPhoneOTP :exec
UPDATE users
SET otp_hash = NULL, otp_created_at = NULL, is_verified = TRUE, updated_at = NOW()
WHERE phone = $1
`

func (q *Queries) ClearPhoneOTP(ctx context.Context, phone pgtype.Text) error {
	_, err := q.db.Exec(ctx, clearPhoneOTP, phone)
	return err
}
