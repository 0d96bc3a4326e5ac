package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"incident-service/config"
	"incident-service/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

// StaffService handles staff accounts and session tokens. Privilege
// is read from the configured allow-list, never from a stored role.
type StaffService struct {
	db        *sql.DB
	jwtSecret []byte
	admins    *config.AllowList
}

// NewStaffService creates a new staff service instance
func NewStaffService(db *sql.DB, jwtSecret string, admins *config.AllowList) *StaffService {
	return &StaffService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		admins:    admins,
	}
}

// CreateStaff registers a new staff account
func (s *StaffService) CreateStaff(ctx context.Context, req models.SignupRequest) (*models.Staff, error) {
	exists, err := s.staffExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check staff existence: %w", err)
	}
	if exists {
		return nil, errors.New("staff already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO staff (email, name, password_hash) VALUES (?, ?, ?)",
		req.Email, req.Name, string(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to insert staff: %w", err)
	}

	return &models.Staff{
		Email:     req.Email,
		Name:      req.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// Login authenticates a staff member and returns a signed session token
func (s *StaffService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	staff, err := s.GetStaffByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	isAdmin := s.admins.Contains(staff.Email)
	token, err := s.generateToken(staff, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(tokenTTL.Seconds()),
		Name:      staff.Name,
		Email:     staff.Email,
		IsAdmin:   isAdmin,
	}, nil
}

// GetStaffByEmail retrieves a staff account
func (s *StaffService) GetStaffByEmail(ctx context.Context, email string) (*models.Staff, error) {
	var staff models.Staff
	err := s.db.QueryRowContext(ctx,
		"SELECT email, name, password_hash, created_at, updated_at FROM staff WHERE email = ?",
		email).Scan(&staff.Email, &staff.Name, &staff.PasswordHash, &staff.CreatedAt, &staff.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("staff not found")
		}
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	return &staff, nil
}

// ValidateToken parses a session token and returns the embedded
// identity. The admin claim is informational; admin endpoints recheck
// the allow-list.
func (s *StaffService) ValidateToken(tokenString string) (name, email string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}

	email, ok = claims["email"].(string)
	if !ok || email == "" {
		return "", "", errors.New("invalid email in token")
	}
	name, _ = claims["name"].(string)

	return name, email, nil
}

func (s *StaffService) generateToken(staff *models.Staff, isAdmin bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": staff.Email,
		"name":  staff.Name,
		"admin": isAdmin,
		"exp":   now.Add(tokenTTL).Unix(),
		"iat":   now.Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *StaffService) staffExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM staff WHERE email = ?", email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
