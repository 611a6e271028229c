package storage

import (
	"context"

	"todoapi/internal/domain/errors"
	"todoapi/internal/domain/models"

	"github.com/google/uuid"
)

type Storage struct {
	users map[string]models.User
	todos map[string]models.Todo
	order []string
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]models.User),
		todos: make(map[string]models.Todo),
	}
}

func (s *Storage) CreateUser(user *models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return errors.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.users[user.ID] = *user
	return nil
}

// SeedUser stores a user as-is, bypassing the duplicate check. Used to
// provision admins and test fixtures.
func (s *Storage) SeedUser(user models.User) {
	s.users[user.ID] = user
}

func (s *Storage) GetUserByID(id string) (*models.User, error) {
	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) CreateTodo(ctx context.Context, todo *models.Todo) error {
	todo.ID = uuid.New().String()
	s.todos[todo.ID] = *todo
	s.order = append(s.order, todo.ID)
	return nil
}

func (s *Storage) GetTodoByID(ctx context.Context, id string, userID string) (*models.Todo, error) {
	todo, exists := s.todos[id]
	if !exists || todo.UserID != userID {
		return nil, errors.ErrTodoNotFound
	}
	return &todo, nil
}

// GetTodos returns the owner's todos in insertion order.
func (s *Storage) GetTodos(ctx context.Context, userID string) ([]models.Todo, error) {
	todos := []models.Todo{}
	for _, id := range s.order {
		if todo, exists := s.todos[id]; exists && todo.UserID == userID {
			todos = append(todos, todo)
		}
	}
	return todos, nil
}

func (s *Storage) UpdateTodo(ctx context.Context, id string, todo *models.Todo) error {
	existing, exists := s.todos[id]
	if !exists || existing.UserID != todo.UserID {
		return errors.ErrTodoNotFound
	}
	todo.ID = id
	s.todos[id] = *todo
	return nil
}

func (s *Storage) DeleteTodo(ctx context.Context, id string, userID string) error {
	todo, exists := s.todos[id]
	if !exists || todo.UserID != userID {
		return errors.ErrTodoNotFound
	}
	delete(s.todos, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Storage) DeleteAllTodos(ctx context.Context) (int64, error) {
	deleted := int64(len(s.todos))
	s.todos = make(map[string]models.Todo)
	s.order = nil
	return deleted, nil
}
