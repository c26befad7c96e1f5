package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CreditReasonExamAttempt labels ledger rows written when an attempt starts.
const CreditReasonExamAttempt = "exam_attempt"

// Profile is a user's account summary.
type Profile struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	Credits     int       `json:"credits"`
	ExamsTaken  int       `json:"examsTaken"`
	ExamsPassed int       `json:"examsPassed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreditDeduction reports the outcome of a credit charge.
type CreditDeduction struct {
	Success    bool   `json:"success"`
	NewBalance int    `json:"newBalance"`
	Error      string `json:"error,omitempty"`
}

// ProfileRepository reads profiles and charges credits.
type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetUserProfile returns the profile, or nil when the user has none.
func (r *ProfileRepository) GetUserProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `
		SELECT user_id, display_name, email, credits, exams_taken, exams_passed, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.Email, &p.Credits, &p.ExamsTaken, &p.ExamsPassed, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// DeductCredits charges amount credits. The debit and its ledger row are
// written by one statement, so a balance never goes negative. Insufficient
// balance is reported in the result, not as an error.
func (r *ProfileRepository) DeductCredits(ctx context.Context, userID string, amount int) (CreditDeduction, error) {
	if amount < 0 {
		return CreditDeduction{Error: "amount must not be negative"}, nil
	}

	var balance int
	err := r.db.QueryRow(ctx, `
		WITH debited AS (
			UPDATE profiles
			SET credits = credits - $2, updated_at = now()
			WHERE user_id = $1 AND credits >= $2
			RETURNING user_id, credits
		), ledger AS (
			INSERT INTO credit_transactions (user_id, amount, reason, balance_after)
			SELECT user_id, -$2::int, $3, credits FROM debited
		)
		SELECT credits FROM debited`, userID, amount, CreditReasonExamAttempt,
	).Scan(&balance)
	if err == nil {
		return CreditDeduction{Success: true, NewBalance: balance}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return CreditDeduction{}, fmt.Errorf("deduct credits: %w", err)
	}

	err = r.db.QueryRow(ctx, `SELECT credits FROM profiles WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return CreditDeduction{Error: "profile not found"}, nil
	}
	if err != nil {
		return CreditDeduction{}, fmt.Errorf("read balance: %w", err)
	}
	return CreditDeduction{NewBalance: balance, Error: fmt.Sprintf("insufficient credits: need %d, have %d", amount, balance)}, nil
}
