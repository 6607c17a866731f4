package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
)

// DefaultMunicipality is assigned to profiles created on first login.
const DefaultMunicipality = "Belas"

const displayNameTTL = 10 * time.Minute

var responsibleColumns = []string{
	"id", "nome", "email", "email_or_phone", "is_responsible", "municipality", "data_criacao",
}

// ResponsibleService manages the "usuarios" profiles of dashboard users.
type ResponsibleService struct {
	db     database.Querier
	cache  redis.Cmdable
	logger *zap.SugaredLogger
}

// NewResponsibleService creates a new responsible service. A nil cache disables
// display-name caching.
func NewResponsibleService(db database.Querier, cache redis.Cmdable, logger *zap.SugaredLogger) *ResponsibleService {
	return &ResponsibleService{db: db, cache: cache, logger: logger}
}

func scanResponsible(row pgx.Row, extra ...any) (models.Responsible, error) {
	var r models.Responsible
	dest := append([]any{&r.ID, &r.Name, &r.Email, &r.EmailOrPhone, &r.IsResponsible, &r.Municipality, &r.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Responsible{}, err
	}
	return r, nil
}

// Get returns the profile for uid.
func (s *ResponsibleService) Get(ctx context.Context, uid string) (models.Responsible, error) {
	query, args, err := database.SQL.
		Select(responsibleColumns...).
		From("usuarios").
		Where(sq.Eq{"id": uid}).
		ToSql()
	if err != nil {
		return models.Responsible{}, fmt.Errorf("build profile query: %w", err)
	}

	r, err := scanResponsible(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Responsible{}, mapError(err, "responsible", uid)
	}
	return r, nil
}

// EnsureProfile creates the profile on first login. Later logins fill in
// missing fields, except for users explicitly marked as not responsible,
// whose profile is left untouched.
func (s *ResponsibleService) EnsureProfile(ctx context.Context, id models.Identity) (models.Responsible, error) {
	existing, err := s.Get(ctx, id.UID)
	if errors.Is(err, ErrNotFound) {
		return s.create(ctx, models.Responsible{
			ID:            id.UID,
			Name:          id.Name,
			Email:         id.Email,
			EmailOrPhone:  id.Email,
			IsResponsible: true,
			Municipality:  DefaultMunicipality,
			CreatedAt:     time.Now().UnixMilli(),
		}, "")
	}
	if err != nil {
		return models.Responsible{}, err
	}
	if !existing.IsResponsible {
		return existing, nil
	}

	set := make(map[string]any)
	if existing.Email == "" && id.Email != "" {
		set["email"] = id.Email
		existing.Email = id.Email
	}
	if existing.EmailOrPhone == "" && id.Email != "" {
		set["email_or_phone"] = id.Email
		existing.EmailOrPhone = id.Email
	}
	if existing.Name == "" && id.Name != "" {
		set["nome"] = id.Name
		existing.Name = id.Name
	}
	if existing.Municipality == "" {
		set["municipality"] = DefaultMunicipality
		existing.Municipality = DefaultMunicipality
	}
	if len(set) == 0 {
		return existing, nil
	}

	query, args, err := database.SQL.Update("usuarios").SetMap(set).Where(sq.Eq{"id": id.UID}).ToSql()
	if err != nil {
		return models.Responsible{}, fmt.Errorf("build profile merge: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return models.Responsible{}, fmt.Errorf("merge profile %s: %w", id.UID, err)
	}
	s.forgetName(ctx, id.UID)
	s.logger.Infow("Responsible profile merged", "uid", id.UID, "fields", len(set))
	return existing, nil
}

// Create stores a new profile with a bcrypt password hash. An empty ID gets a fresh UUID. An empty password
// leaves the account usable through Google sign-in only.
func (s *ResponsibleService) Create(ctx context.Context, r models.Responsible, password string) (models.Responsible, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	if r.Municipality == "" {
		r.Municipality = DefaultMunicipality
	}
	return s.create(ctx, r, password)
}

func (s *ResponsibleService) create(ctx context.Context, r models.Responsible, password string) (models.Responsible, error) {
	var hash string
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return models.Responsible{}, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}

	query, args, err := database.SQL.
		Insert("usuarios").
		Columns(append(responsibleColumns, "password_hash")...).
		Values(r.ID, r.Name, r.Email, r.EmailOrPhone, r.IsResponsible, r.Municipality, r.CreatedAt, hash).
		ToSql()
	if err != nil {
		return models.Responsible{}, fmt.Errorf("build profile insert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return models.Responsible{}, fmt.Errorf("create profile %s: %w", r.ID, err)
	}

	s.logger.Infow("Responsible profile created", "uid", r.ID, "municipality", r.Municipality)
	return r, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both yield ErrUnauthorized.
func (s *ResponsibleService) Authenticate(ctx context.Context, email, password string) (models.Responsible, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return models.Responsible{}, ErrUnauthorized
	}

	query, args, err := database.SQL.
		Select(append(responsibleColumns, "password_hash")...).
		From("usuarios").
		Where(sq.Eq{"lower(email)": email}).
		ToSql()
	if err != nil {
		return models.Responsible{}, fmt.Errorf("build login query: %w", err)
	}

	var hash string
	r, err := scanResponsible(s.db.QueryRow(ctx, query, args...), &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Responsible{}, ErrUnauthorized
	}
	if err != nil {
		return models.Responsible{}, fmt.Errorf("login lookup: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.Responsible{}, ErrUnauthorized
	}
	return r, nil
}

func nameKey(uid string) string { return "responsible:name:" + uid }

// DisplayName returns the name shown on problem cards, or a localized
// placeholder when the profile does not exist.
func (s *ResponsibleService) DisplayName(ctx context.Context, uid, locale string) (string, error) {
	if uid == "" {
		return i18n.Translate(locale, "empty.responsible"), nil
	}
	if s.cache != nil {
		name, err := s.cache.Get(ctx, nameKey(uid)).Result()
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("Display name cache read failed", "uid", uid, "error", err)
		}
	}

	r, err := s.Get(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return i18n.Translate(locale, "missing.responsible"), nil
	}
	if err != nil {
		return "", err
	}

	name := r.Name
	if name == "" {
		name = r.Email
	}
	if s.cache != nil && name != "" {
		if err := s.cache.Set(ctx, nameKey(uid), name, displayNameTTL).Err(); err != nil {
			s.logger.Warnw("Display name cache write failed", "uid", uid, "error", err)
		}
	}
	return name, nil
}

func (s *ResponsibleService) forgetName(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, nameKey(uid)).Err(); err != nil {
		s.logger.Warnw("Display name cache delete failed", "uid", uid, "error", err)
	}
}
