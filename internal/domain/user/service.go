package user

import "errors"

var (
	// ErrEmailExists is returned when registering an email that already exists
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists is returned when registering a username that already exists
	ErrUsernameExists = errors.New("username already exists")
	// ErrUsernameRequired is returned when registering with an empty username
	ErrUsernameRequired = errors.New("username is required")
	// ErrInvalidCredentials is returned for a wrong username/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive is returned when a deactivated account authenticates
	ErrUserInactive = errors.New("user is inactive")
)

// RegisterRequest represents the input for user registration
type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Service interface for user operations
type Service interface {
	Register(req RegisterRequest) (*User, error)
	Authenticate(username, password string) (*User, error)
	Resolve(id string) (*User, error)
}

// service struct for user operations
type service struct {
	repo Repository
}

// NewService creates a new user service
func NewService(repo Repository) Service {
	return &service{repo}
}

// Register registers a new user
func (s *service) Register(req RegisterRequest) (*User, error) {
	if req.Username == "" {
		return nil, ErrUsernameRequired
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(req.Email); err == nil {
		return nil, ErrEmailExists
	}

	if _, err := s.repo.GetByUsername(req.Username); err == nil {
		return nil, ErrUsernameExists
	}

	user := &User{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    hashedPassword,
		IsActive:    true,
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate checks a username/password pair against the directory.
// Unknown user and wrong password report the same error.
func (s *service) Authenticate(username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}

// Resolve returns the active user with the given ID.
func (s *service) Resolve(id string) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}
