package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"todoapi/internal/auth"
	"todoapi/internal/domain/errors"
	"todoapi/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
}

type TodoRepository interface {
	CreateTodo(ctx context.Context, todo *models.Todo) error
	GetTodos(ctx context.Context, userID string) ([]models.Todo, error)
	GetTodoByID(ctx context.Context, id string, userID string) (*models.Todo, error)
	UpdateTodo(ctx context.Context, id string, todo *models.Todo) error
	DeleteTodo(ctx context.Context, id string, userID string) error
	DeleteAllTodos(ctx context.Context) (int64, error)
}

type TodoAPI struct {
	httpSrv   *http.Server
	users     UserRepository
	todos     TodoRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewTodoAPI(users UserRepository, todos TodoRepository, cfg *Config) *TodoAPI {
	if users == nil || todos == nil || cfg == nil {
		return nil
	}

	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = defaultJWTSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	api := TodoAPI{
		httpSrv: &http.Server{
			Addr: fmt.Sprintf("%s:%d", addr, port),
		},
		users:     users,
		todos:     todos,
		jwtSecret: secret,
		tokenTTL:  time.Duration(ttl) * time.Second,
	}

	api.configRoutes()

	return &api
}

func (api *TodoAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}

	return api.httpSrv.ListenAndServe()
}

// Handler returns the configured route table, mainly for in-process tests.
func (api *TodoAPI) Handler() http.Handler {
	return api.httpSrv.Handler
}

func (api *TodoAPI) Shutdown(ctx context.Context) error {
	if api.httpSrv == nil {
		return nil
	}

	return api.httpSrv.Shutdown(ctx)
}

func (api *TodoAPI) configRoutes() {
	router := gin.Default()

	router.Use(GzipRequestDecompress(), GzipResponseCompress())

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "HTTP method not allowed"})
	})

	router.POST("/register", api.register)
	router.POST("/login", api.login)

	todos := router.Group("/todos")
	todos.Use(api.authRequired())
	{
		todos.GET("", api.listTodos)
		todos.POST("", api.createTodo)
		todos.DELETE("reset", api.resetTodos)
		todos.PUT(":todoID", api.updateTodo)
		todos.DELETE(":todoID", api.deleteTodo)
	}

	api.httpSrv.Handler = router
}

func (api *TodoAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	existingUser, _ := api.users.GetUserByEmail(req.Email)
	if existingUser != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	user := models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Password: string(hash),
		Role:     "user",
	}

	if err := api.users.CreateUser(&user); err != nil {
		if err == errors.ErrUserAlreadyExists {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "user created"})
}

func (api *TodoAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	user, err := api.users.GetUserByEmail(req.Email)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}

	token, _, err := auth.GenerateToken(user, api.jwtSecret, api.tokenTTL)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(accessTokenCookie, token, int(api.tokenTTL.Seconds()), "/", "", false, true)

	ctx.JSON(http.StatusOK, gin.H{"message": "login successful"})
}

var allowedTodoStatuses = map[string]bool{
	"todo":       true,
	"inprogress": true,
	"done":       true,
}

const dateLayout = "2006-01-02"

func validDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

func (api *TodoAPI) listTodos(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	todos, err := api.todos.GetTodos(ctx.Request.Context(), user.ID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusOK, todos)
}

func (api *TodoAPI) createTodo(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	var req models.CreateTodoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}
	if !validDate(req.StartDate) || !validDate(req.EndDate) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidDate.Error()})
		return
	}

	status := req.Status
	if status == "" {
		status = "todo"
	}

	todo := models.Todo{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      status,
	}

	if err := api.todos.CreateTodo(ctx.Request.Context(), &todo); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, todo)
}

func (api *TodoAPI) updateTodo(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}
	id := ctx.Param("todoID")

	var req models.UpdateTodoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}
	if req.Status != nil && !allowedTodoStatuses[*req.Status] {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidStatus.Error()})
		return
	}
	if (req.StartDate != nil && !validDate(*req.StartDate)) || (req.EndDate != nil && !validDate(*req.EndDate)) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidDate.Error()})
		return
	}

	// Owner-scoped lookup: a foreign todo id is indistinguishable from a
	// missing one.
	todo, err := api.todos.GetTodoByID(ctx.Request.Context(), id, user.ID)
	if err != nil {
		if err == errors.ErrTodoNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrTodoNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}

	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.StartDate != nil {
		todo.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		todo.EndDate = *req.EndDate
	}
	if req.Status != nil {
		todo.Status = *req.Status
	}

	if err := api.todos.UpdateTodo(ctx.Request.Context(), id, todo); err != nil {
		if err == errors.ErrTodoNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrTodoNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, todo)
}

func (api *TodoAPI) deleteTodo(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}
	id := ctx.Param("todoID")

	if err := api.todos.DeleteTodo(ctx.Request.Context(), id, user.ID); err != nil {
		if err == errors.ErrTodoNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrTodoNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "todo deleted"})
}

func (api *TodoAPI) resetTodos(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	if user.Role != "admin" {
		ctx.JSON(http.StatusForbidden, gin.H{"error": errors.ErrForbidden.Error()})
		return
	}

	if _, err := api.todos.DeleteAllTodos(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "all todos deleted"})
}

func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Email":
				return errors.ErrInvalidEmail
			case "Password":
				return errors.ErrInvalidPassword
			case "Title":
				return errors.ErrInvalidTitle
			case "Description":
				return errors.ErrInvalidDescription
			case "Status":
				return errors.ErrInvalidStatus
			}
		}
	}
	return errors.ErrValidationFailed
}
