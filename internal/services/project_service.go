package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProjectService manages projects and their kanban sections, firing
// project-level automation triggers.
type ProjectService struct {
	db         *gorm.DB
	logger     *logrus.Logger
	automation *AutomationEngine
}

func NewProjectService(db *gorm.DB, logger *logrus.Logger) *ProjectService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ProjectService{db: db, logger: logger}
}

// SetAutomationEngine injects the engine.
func (s *ProjectService) SetAutomationEngine(engine *AutomationEngine) {
	s.automation = engine
}

// ProjectCreateRequest creates a project with optional initial sections.
type ProjectCreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Sections    []string `json:"sections"`
}

// ProjectUpdateRequest updates a project. Nil fields are left untouched.
type ProjectUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// CreateProject persists a project owned by actorID, creates its initial
// sections and fires project_created.
func (s *ProjectService) CreateProject(ctx context.Context, actorID uint, req *ProjectCreateRequest) (*models.Project, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	project := &models.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     actorID,
		Color:       req.Color,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	sections := req.Sections
	if len(sections) == 0 {
		sections = []string{"To Do", "In Progress", "Done"}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		for i, name := range sections {
			section := &models.Section{
				ProjectID: project.ID,
				Name:      name,
				Position:  i,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := tx.Create(section).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fireTrigger(ctx, models.TriggerProjectCreated, project, actorID)
	return project, nil
}

// UpdateProject mutates a project owned by actorID.
func (s *ProjectService) UpdateProject(ctx context.Context, actorID, id uint, req *ProjectUpdateRequest) (*models.Project, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	project, err := s.findOwnedProject(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Color != nil {
		project.Color = *req.Color
	}
	project.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// CompleteProject marks a project completed and fires project_completed.
// Completing an already completed project is a no-op.
func (s *ProjectService) CompleteProject(ctx context.Context, actorID, id uint) (*models.Project, error) {
	project, err := s.findOwnedProject(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if project.Completed {
		return project, nil
	}
	now := time.Now()
	project.Completed = true
	project.CompletedAt = &now
	project.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, err
	}

	s.fireTrigger(ctx, models.TriggerProjectCompleted, project, actorID)
	return project, nil
}

// DeleteProject soft-deletes a project owned by actorID.
func (s *ProjectService) DeleteProject(ctx context.Context, actorID, id uint) error {
	project, err := s.findOwnedProject(ctx, actorID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(project).Error
}

// GetProject loads one project with owner and sections.
func (s *ProjectService) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Sections").
		First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &project, nil
}

// ListProjects returns the caller's projects, newest first.
func (s *ProjectService) ListProjects(ctx context.Context, ownerID uint) ([]models.Project, error) {
	var projects []models.Project
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) findOwnedProject(ctx context.Context, actorID, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if project.OwnerID != actorID {
		return nil, fmt.Errorf("project %d: %w", id, ErrPermissionDenied)
	}
	return &project, nil
}

func (s *ProjectService) fireTrigger(ctx context.Context, trigger string, project *models.Project, actorID uint) {
	if s.automation == nil {
		return
	}
	payload := AutomationPayload{
		"project_id": project.ID,
		"name":       project.Name,
	}
	s.automation.ExecuteAutomations(ctx, trigger, payload, &actorID)
}
