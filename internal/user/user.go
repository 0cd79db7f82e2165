package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ahinestrog/bookstore/internal/store"
)

const minPasswordLen = 8

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type User struct {
	ID           int64
	Email        string
	Username     string
	Phone        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

type SignupInput struct {
	Email     string
	Username  string
	Phone     string
	Password  string
	Password2 string
}

// FieldErrors maps a signup field to what is wrong with it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for k, v := range e {
		parts = append(parts, k+": "+v)
	}
	return "invalid signup: " + strings.Join(parts, "; ")
}

func (in SignupInput) validate() error {
	errs := FieldErrors{}
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.TrimSpace(in.Email) == "" {
		errs["email"] = "Enter a valid email address."
	}
	if strings.TrimSpace(in.Username) == "" {
		errs["username"] = "This field is required."
	}
	if len(in.Password) < minPasswordLen {
		errs["password"] = fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLen)
	} else if in.Password != in.Password2 {
		errs["password"] = "Password fields didn't match."
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Create(ctx context.Context, u *User) (int64, error) {
	u.CreatedAt = time.Unix(time.Now().Unix(), 0).UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users(email,username,phone,password_hash,is_admin,created_unix)
		 VALUES(?,?,?,?,?,?)`, u.Email, u.Username, u.Phone, u.PasswordHash, u.IsAdmin, u.CreatedAt.Unix())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	u.ID, err = res.LastInsertId()
	return u.ID, err
}

const userColumns = `id,email,username,phone,password_hash,is_admin,created_unix`

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, normalizeEmail(email)))
}

func (r *Repository) scan(row *sql.Row) (*User, error) {
	var (
		u       User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Phone, &u.PasswordHash, &u.IsAdmin, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Service registers customers and checks their credentials.
type Service struct {
	repo *Repository
	cost int
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        normalizeEmail(in.Email),
		Username:     strings.TrimSpace(in.Username),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateAdmin registers a staff account, used for seeding.
func (s *Service) CreateAdmin(ctx context.Context, email, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &User{Email: normalizeEmail(email), Username: username, PasswordHash: string(hash), IsAdmin: true}
	if _, err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
