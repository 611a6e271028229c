package db

import (
	"context"
	"log"
	"time"

	"todoapi/internal/domain/errors"
	"todoapi/internal/domain/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const dateLayout = "2006-01-02"

type Storage struct {
	conn               *pgx.Conn
	prepCreateTodo     string
	prepGetTodoByID    string
	prepGetTodos       string
	prepUpdateTodo     string
	prepDeleteTodo     string
	prepCreateUser     string
	prepGetUserByID    string
	prepGetUserByEmail string
}

func NewStorage(connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Println("[ERROR] failed to connect to the database:", err)
		return nil, err
	}

	s := &Storage{
		conn:               conn,
		prepCreateTodo:     `INSERT INTO todos (id, user_id, title, description, start_date, end_date, status) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		prepGetTodoByID:    `SELECT id, user_id, title, description, start_date, end_date, status FROM todos WHERE id = $1 AND user_id = $2`,
		prepGetTodos:       `SELECT id, user_id, title, description, start_date, end_date, status FROM todos WHERE user_id = $1 ORDER BY created_at`,
		prepUpdateTodo:     `UPDATE todos SET title = $1, description = $2, start_date = $3, end_date = $4, status = $5 WHERE id = $6 AND user_id = $7`,
		prepDeleteTodo:     `DELETE FROM todos WHERE id = $1 AND user_id = $2`,
		prepCreateUser:     `INSERT INTO users (id, email, password, role) VALUES ($1, $2, $3, $4)`,
		prepGetUserByID:    `SELECT id, email, password, role FROM users WHERE id = $1`,
		prepGetUserByEmail: `SELECT id, email, password, role FROM users WHERE email = $1`,
	}
	log.Println("[SUCCESS] database connection established")
	return s, nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close(ctx)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.ErrInvalidDate
	}
	return t, nil
}

func (s *Storage) CreateTodo(ctx context.Context, todo *models.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	start, err := parseDate(todo.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate(todo.EndDate)
	if err != nil {
		return err
	}
	todo.ID = uuid.New().String()
	stmt, err := s.conn.Prepare(ctx, "create_todo", s.prepCreateTodo)
	if err != nil {
		log.Println("[ERROR] failed to prepare create todo statement:", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, todo.ID, todo.UserID, todo.Title, todo.Description, start, end, todo.Status)
	if err != nil {
		log.Println("[ERROR] failed to create todo:", err)
		return errors.ErrConflict
	}
	log.Println("[SUCCESS] todo created:", todo.ID)
	return nil
}

func (s *Storage) GetTodoByID(ctx context.Context, id string, userID string) (*models.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_todo_by_id", s.prepGetTodoByID)
	if err != nil {
		log.Println("[ERROR] failed to prepare get todo statement:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id, userID)
	todo, err := scanTodo(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			log.Println("[ERROR] todo not found:", id)
			return nil, errors.ErrTodoNotFound
		}
		log.Println("[ERROR] failed to read todo:", err)
		return nil, err
	}
	return todo, nil
}

func (s *Storage) GetTodos(ctx context.Context, userID string) ([]models.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_todos", s.prepGetTodos)
	if err != nil {
		log.Println("[ERROR] failed to prepare list todos statement:", err)
		return nil, err
	}
	rows, err := s.conn.Query(ctx, stmt.Name, userID)
	if err != nil {
		log.Println("[ERROR] failed to list todos:", err)
		return nil, err
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			log.Println("[ERROR] failed to read todos:", err)
			return nil, err
		}
		todos = append(todos, *todo)
	}
	log.Println("[SUCCESS] todos listed:", len(todos))
	return todos, nil
}

func (s *Storage) UpdateTodo(ctx context.Context, id string, todo *models.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	start, err := parseDate(todo.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate(todo.EndDate)
	if err != nil {
		return err
	}
	stmt, err := s.conn.Prepare(ctx, "update_todo", s.prepUpdateTodo)
	if err != nil {
		log.Println("[ERROR] failed to prepare update todo statement:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, todo.Title, todo.Description, start, end, todo.Status, id, todo.UserID)
	if err != nil {
		log.Println("[ERROR] failed to update todo:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		log.Println("[ERROR] todo to update not found:", id)
		return errors.ErrTodoNotFound
	}
	log.Println("[SUCCESS] todo updated:", id)
	return nil
}

func (s *Storage) DeleteTodo(ctx context.Context, id string, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "delete_todo", s.prepDeleteTodo)
	if err != nil {
		log.Println("[ERROR] failed to prepare delete todo statement:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, id, userID)
	if err != nil {
		log.Println("[ERROR] failed to delete todo:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		log.Println("[ERROR] todo to delete not found:", id)
		return errors.ErrTodoNotFound
	}
	log.Println("[SUCCESS] todo deleted:", id)
	return nil
}

// DeleteAllTodos removes every todo regardless of owner. Admin reset only.
func (s *Storage) DeleteAllTodos(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM todos`)
	if err != nil {
		_ = tx.Rollback(ctx)
		log.Println("[ERROR] failed to reset todos:", err)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	log.Println("[SUCCESS] todos reset, deleted:", ct.RowsAffected())
	return ct.RowsAffected(), nil
}

func (s *Storage) CreateUser(user *models.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "create_user", s.prepCreateUser)
	if err != nil {
		log.Println("[ERROR] failed to prepare create user statement:", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, user.ID, user.Email, user.Password, user.Role)
	if err != nil {
		log.Println("[ERROR] failed to create user:", err)
		return errors.ErrUserAlreadyExists
	}
	log.Println("[SUCCESS] user created:", user.ID)
	return nil
}

func (s *Storage) GetUserByID(id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_id", s.prepGetUserByID)
	if err != nil {
		log.Println("[ERROR] failed to prepare get user statement:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id)
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Role); err != nil {
		if err == pgx.ErrNoRows {
			log.Println("[ERROR] user not found:", id)
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] failed to read user:", err)
		return nil, err
	}
	return user, nil
}

func (s *Storage) GetUserByEmail(email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_email", s.prepGetUserByEmail)
	if err != nil {
		log.Println("[ERROR] failed to prepare get user by email statement:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, email)
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Role); err != nil {
		if err == pgx.ErrNoRows {
			log.Println("[ERROR] user not found:", email)
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] failed to read user:", err)
		return nil, err
	}
	return user, nil
}

func scanTodo(row pgx.Row) (*models.Todo, error) {
	todo := &models.Todo{}
	var start, end time.Time
	if err := row.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Description, &start, &end, &todo.Status); err != nil {
		return nil, err
	}
	todo.StartDate = start.Format(dateLayout)
	todo.EndDate = end.Format(dateLayout)
	return todo, nil
}
