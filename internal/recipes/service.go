package recipes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/recipes/db"
)

var (
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrUnitNotFound       = errors.New("unit of measurement not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrCommentDeleted     = errors.New("comment is deleted")
	ErrForbidden          = errors.New("not the author")
)

type IngredientInput struct {
	IngredientID int64   `json:"ingredient_id"`
	UnitID       int64   `json:"unit_id"`
	Quantity     float64 `json:"quantity"`
}

type StageInput struct {
	OrderIndex  int    `json:"order_index"`
	Minutes     int    `json:"minutes"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type RecipeCreate struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Servings    int               `json:"servings"`
	Difficulty  models.Difficulty `json:"difficulty"`
	Calories    float64           `json:"calories"`
	Ingredients []IngredientInput `json:"ingredients"`
	TagIDs      []int64           `json:"tag_ids"`
	Stages      []StageInput      `json:"stages"`
}

// StagePhoto pairs an uploaded image with the stage it illustrates.
type StagePhoto struct {
	OrderIndex int
	Reader     io.Reader
}

// RecipeFull is the detail projection with counters the row itself does not
// carry.
type RecipeFull struct {
	*models.Recipe
	LikesCount    int  `json:"likes_count"`
	CommentsCount int  `json:"comments_count"`
	Liked         bool `json:"liked"`
}

type ListResult struct {
	TotalCount int             `json:"total_count"`
	Recipes    []models.Recipe `json:"recipes"`
}

type DBLayer interface {
	CreateRecipe(ctx context.Context, recipe *models.Recipe, stages []models.RecipeStage, ingredients []models.RecipeIngredient, tagIDs []int64) error
	GetRecipeByID(ctx context.Context, id int64) (*models.Recipe, error)
	ListRecipes(ctx context.Context, filter db.ListFilter) ([]models.Recipe, int, error)
	SetPublished(ctx context.Context, id int64, published bool, at time.Time) error
	SetPhotoURL(ctx context.Context, id int64, url string) error
	SetStagePhotoURL(ctx context.Context, recipeID int64, orderIndex int, url string) error
	IncrementViews(ctx context.Context, id int64) error
	DeleteRecipe(ctx context.Context, id int64) error
	MissingIngredientIDs(ctx context.Context, ids []int64) ([]int64, error)
	MissingTagIDs(ctx context.Context, ids []int64) ([]int64, error)
	MissingUnitIDs(ctx context.Context, ids []int64) ([]int64, error)
	LikeExists(ctx context.Context, userID, recipeID int64) (bool, error)
	InsertLike(ctx context.Context, like *models.RecipeLike) error
	DeleteLike(ctx context.Context, userID, recipeID int64) error
	CountLikes(ctx context.Context, recipeID int64) (int, error)
	CountComments(ctx context.Context, recipeID int64) (int, error)
	ListComments(ctx context.Context, recipeID int64) ([]models.Comment, error)
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	UpdateComment(ctx context.Context, comment *models.Comment) error
	SoftDeleteComment(ctx context.Context, id int64) error
	RecipeExists(ctx context.Context, id int64) (bool, error)
}

type MediaStore interface {
	SaveRecipePreview(recipeID int64, r io.Reader) (string, error)
	SaveRecipeStagePhoto(recipeID int64, orderIndex int, r io.Reader) (string, error)
	Remove(path string) error
}

type Service struct {
	DB     DBLayer
	Media  MediaStore
	Logger *logger.Logger
}

func NewService(db DBLayer, media MediaStore, logger *logger.Logger) *Service {
	return &Service{DB: db, Media: media, Logger: logger}
}

// CreateRecipe validates the referenced catalog rows, stores the recipe tree
// in one transaction and attaches the uploaded images afterwards.
func (s *Service) CreateRecipe(ctx context.Context, authorID int64, input RecipeCreate, preview io.Reader, stagePhotos []StagePhoto) (*RecipeFull, error) {
	ingredientIDs := make([]int64, 0, len(input.Ingredients))
	unitIDs := make([]int64, 0, len(input.Ingredients))
	for _, ingredient := range input.Ingredients {
		ingredientIDs = append(ingredientIDs, ingredient.IngredientID)
		unitIDs = append(unitIDs, ingredient.UnitID)
	}

	if missing, err := s.DB.MissingIngredientIDs(ctx, ingredientIDs); err != nil {
		return nil, fmt.Errorf("failed to check ingredients: %w", err)
	} else if len(missing) > 0 {
		return nil, ErrIngredientNotFound
	}
	if missing, err := s.DB.MissingUnitIDs(ctx, unitIDs); err != nil {
		return nil, fmt.Errorf("failed to check units: %w", err)
	} else if len(missing) > 0 {
		return nil, ErrUnitNotFound
	}
	if missing, err := s.DB.MissingTagIDs(ctx, input.TagIDs); err != nil {
		return nil, fmt.Errorf("failed to check tags: %w", err)
	} else if len(missing) > 0 {
		return nil, ErrTagNotFound
	}

	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyEasy
	}
	servings := input.Servings
	if servings < 1 {
		servings = 1
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Title:       input.Title,
		Description: input.Description,
		Servings:    servings,
		Difficulty:  difficulty,
		Calories:    input.Calories,
		CreatedAt:   time.Now(),
	}

	stages := make([]models.RecipeStage, 0, len(input.Stages))
	for _, stage := range input.Stages {
		stages = append(stages, models.RecipeStage{
			OrderIndex:  stage.OrderIndex,
			Minutes:     stage.Minutes,
			Title:       stage.Title,
			Description: stage.Description,
		})
	}
	ingredients := make([]models.RecipeIngredient, 0, len(input.Ingredients))
	for _, ingredient := range input.Ingredients {
		ingredients = append(ingredients, models.RecipeIngredient{
			IngredientID: ingredient.IngredientID,
			UnitID:       ingredient.UnitID,
			Quantity:     ingredient.Quantity,
		})
	}

	if err := s.DB.CreateRecipe(ctx, recipe, stages, ingredients, input.TagIDs); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	if preview != nil {
		path, err := s.Media.SaveRecipePreview(recipe.ID, preview)
		if err != nil {
			return nil, fmt.Errorf("failed to store preview: %w", err)
		}
		if err := s.DB.SetPhotoURL(ctx, recipe.ID, path); err != nil {
			return nil, fmt.Errorf("failed to save preview path: %w", err)
		}
	}
	for _, photo := range stagePhotos {
		path, err := s.Media.SaveRecipeStagePhoto(recipe.ID, photo.OrderIndex, photo.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to store stage photo: %w", err)
		}
		if err := s.DB.SetStagePhotoURL(ctx, recipe.ID, photo.OrderIndex, path); err != nil {
			return nil, fmt.Errorf("failed to save stage photo path: %w", err)
		}
	}

	s.Logger.Info("RECIPE", fmt.Sprintf("Created recipe %d by user %d", recipe.ID, authorID))
	return s.GetRecipe(ctx, recipe.ID, authorID)
}

// GetRecipe returns the full recipe with like and comment counters and bumps
// the view count.
func (s *Service) GetRecipe(ctx context.Context, id, viewerID int64) (*RecipeFull, error) {
	recipe, err := s.DB.GetRecipeByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to load recipe %d: %w", id, err)
	}

	if err := s.DB.IncrementViews(ctx, id); err != nil {
		s.Logger.Error("RECIPE", fmt.Sprintf("Failed to bump views for recipe %d: %v", id, err))
	} else {
		recipe.ViewCount++
	}

	likes, err := s.DB.CountLikes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	comments, err := s.DB.CountComments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	liked, err := s.DB.LikeExists(ctx, viewerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check like: %w", err)
	}

	return &RecipeFull{
		Recipe:        recipe,
		LikesCount:    likes,
		CommentsCount: comments,
		Liked:         liked,
	}, nil
}

// ListRecipes returns one page of recipes matching the filter.
func (s *Service) ListRecipes(ctx context.Context, filter db.ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	rows, total, err := s.DB.ListRecipes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return &ListResult{TotalCount: total, Recipes: rows}, nil
}

// SetPublished toggles recipe visibility; only the author may do it.
func (s *Service) SetPublished(ctx context.Context, recipeID, userID int64, published bool) error {
	recipe, err := s.DB.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to load recipe %d: %w", recipeID, err)
	}
	if recipe.AuthorID != userID {
		return ErrForbidden
	}

	if err := s.DB.SetPublished(ctx, recipeID, published, time.Now()); err != nil {
		if db.IsNotFound(err) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to update recipe %d: %w", recipeID, err)
	}
	return nil
}

// DeleteRecipe removes the recipe tree and its images; only the author may
// do it.
func (s *Service) DeleteRecipe(ctx context.Context, recipeID, userID int64) error {
	recipe, err := s.DB.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to load recipe %d: %w", recipeID, err)
	}
	if recipe.AuthorID != userID {
		return ErrForbidden
	}

	if err := s.DB.DeleteRecipe(ctx, recipeID); err != nil {
		if db.IsNotFound(err) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to delete recipe %d: %w", recipeID, err)
	}

	if err := s.Media.Remove(recipe.PhotoURL); err != nil {
		s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove preview %s: %v", recipe.PhotoURL, err))
	}
	for _, stage := range recipe.Stages {
		if err := s.Media.Remove(stage.PhotoURL); err != nil {
			s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove stage photo %s: %v", stage.PhotoURL, err))
		}
	}

	s.Logger.Info("RECIPE", fmt.Sprintf("Deleted recipe %d", recipeID))
	return nil
}

// ToggleLike flips the user's like and reports the resulting state.
func (s *Service) ToggleLike(ctx context.Context, recipeID, userID int64) (bool, error) {
	exists, err := s.DB.RecipeExists(ctx, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to check recipe: %w", err)
	}
	if !exists {
		return false, ErrRecipeNotFound
	}

	liked, err := s.DB.LikeExists(ctx, userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	if liked {
		if err := s.DB.DeleteLike(ctx, userID, recipeID); err != nil {
			return false, fmt.Errorf("failed to remove like: %w", err)
		}
		return false, nil
	}
	if err := s.DB.InsertLike(ctx, &models.RecipeLike{UserID: userID, RecipeID: recipeID}); err != nil {
		return false, fmt.Errorf("failed to add like: %w", err)
	}
	return true, nil
}

// ListComments returns every comment for a recipe, oldest first. Soft-deleted
// comments stay in the list with their text blanked so replies keep context.
func (s *Service) ListComments(ctx context.Context, recipeID int64) ([]models.Comment, error) {
	exists, err := s.DB.RecipeExists(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipe: %w", err)
	}
	if !exists {
		return nil, ErrRecipeNotFound
	}

	comments, err := s.DB.ListComments(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	for i := range comments {
		if comments[i].Deleted {
			comments[i].Text = ""
		}
	}
	return comments, nil
}

// CreateComment adds a comment, optionally as a reply to another one on the
// same recipe.
func (s *Service) CreateComment(ctx context.Context, recipeID, authorID int64, text string, rating int, replyTo *int64) (*models.Comment, error) {
	exists, err := s.DB.RecipeExists(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipe: %w", err)
	}
	if !exists {
		return nil, ErrRecipeNotFound
	}

	if replyTo != nil {
		parent, err := s.DB.GetComment(ctx, *replyTo)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, ErrCommentNotFound
			}
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		if parent.RecipeID != recipeID {
			return nil, ErrCommentNotFound
		}
	}

	comment := &models.Comment{
		RecipeID:  recipeID,
		AuthorID:  authorID,
		Text:      text,
		Rating:    rating,
		ReplyTo:   replyTo,
		CreatedAt: time.Now(),
	}
	if err := s.DB.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// UpdateComment edits a comment; only the author may do it and a deleted
// comment stays frozen.
func (s *Service) UpdateComment(ctx context.Context, commentID, userID int64, text string, rating int) (*models.Comment, error) {
	comment, err := s.DB.GetComment(ctx, commentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to load comment %d: %w", commentID, err)
	}
	if comment.AuthorID != userID {
		return nil, ErrForbidden
	}
	if comment.Deleted {
		return nil, ErrCommentDeleted
	}

	comment.Text = text
	comment.Rating = rating
	if err := s.DB.UpdateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment %d: %w", commentID, err)
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment; only the author may do it.
func (s *Service) DeleteComment(ctx context.Context, commentID, userID int64) error {
	comment, err := s.DB.GetComment(ctx, commentID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to load comment %d: %w", commentID, err)
	}
	if comment.AuthorID != userID {
		return ErrForbidden
	}
	if comment.Deleted {
		return nil
	}

	if err := s.DB.SoftDeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", commentID, err)
	}
	return nil
}
