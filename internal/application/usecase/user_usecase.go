package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Insumos-api/internal/application/auth"
	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

// UserUseCase consultas sobre los usuarios (actores de los movimientos).
type UserUseCase struct {
	repo repository.UserRepository
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia.
func NewUserUseCase(repo repository.UserRepository) *UserUseCase {
	return &UserUseCase{repo: repo}
}

// GetByID obtiene un usuario por ID.
func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return entityToUserResponse(user), nil
}

// List lista usuarios paginados.
func (uc *UserUseCase) List(ctx context.Context, page dto.PageRequest) ([]dto.UserResponse, error) {
	page.DefaultPage()
	users, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *entityToUserResponse(u))
	}
	return out, nil
}

// Update edita un usuario. Solo el propio usuario o un admin; rol y estado solo un admin.
// El email sigue siendo único y la contraseña nueva se vuelve a hashear.
func (uc *UserUseCase) Update(ctx context.Context, actorID, actorRole, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	isAdmin := actorRole == entity.RoleAdmin
	if !isAdmin && actorID != id {
		return nil, fmt.Errorf("%w: solo el propio usuario o un admin", domain.ErrForbidden)
	}
	if !isAdmin && (in.Role != nil || in.Status != nil) {
		return nil, fmt.Errorf("%w: rol y estado solo los cambia un admin", domain.ErrForbidden)
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, fmt.Errorf("%w: email vacío", domain.ErrInvalidInput)
		}
		if email != user.Email {
			other, err := uc.repo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != user.ID {
				return nil, domain.ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: nombre vacío", domain.ErrInvalidInput)
		}
		user.Name = name
	}
	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLen {
			return nil, fmt.Errorf("%w: password de al menos %d caracteres", domain.ErrInvalidInput, auth.MinPasswordLen)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if in.Role != nil {
		if !entity.ValidRole(*in.Role) {
			return nil, fmt.Errorf("%w: rol %q inválido", domain.ErrInvalidInput, *in.Role)
		}
		user.Role = *in.Role
	}
	if in.Status != nil {
		if !entity.ValidStatus(*in.Status) {
			return nil, fmt.Errorf("%w: estado %q inválido", domain.ErrInvalidInput, *in.Status)
		}
		user.Status = *in.Status
	}

	user.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

// Deactivate es la baja de un usuario: queda inactivo y conserva sus movimientos.
// Solo el propio usuario o un admin.
func (uc *UserUseCase) Deactivate(ctx context.Context, actorID, actorRole, id string) error {
	if actorRole != entity.RoleAdmin && actorID != id {
		return fmt.Errorf("%w: solo el propio usuario o un admin", domain.ErrForbidden)
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if !user.IsActive() {
		return nil
	}
	user.Status = entity.UserStatusInactive
	user.UpdatedAt = time.Now().UTC()
	return uc.repo.Update(ctx, user)
}

func entityToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
