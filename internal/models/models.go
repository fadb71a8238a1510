package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that owns projects and automation rules.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `json:"name"`
	Avatar    string         `json:"avatar"`
	Role      string         `gorm:"default:'member'" json:"role"` // member, admin
	Status    string         `gorm:"default:'active'" json:"status"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Projects []Project `gorm:"foreignKey:OwnerID" json:"projects,omitempty"`
}

// Project groups tasks into a board owned by a single user.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint           `gorm:"index" json:"owner_id"`
	Color       string         `json:"color"`
	Completed   bool           `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Owner    User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Sections []Section `gorm:"foreignKey:ProjectID" json:"sections,omitempty"`
	Tasks    []Task    `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

// Section is a kanban column inside a project.
type Section struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index" json:"project_id"`
	Name      string    `gorm:"not null" json:"name"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Tasks   []Task  `gorm:"foreignKey:SectionID" json:"tasks,omitempty"`
}

// Task is a card on a board.
type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	ProjectID   uint           `gorm:"index" json:"project_id"`
	SectionID   *uint          `gorm:"index" json:"section_id"`
	AssigneeID  *uint          `gorm:"index" json:"assignee_id"`
	CreatedBy   uint           `gorm:"index" json:"created_by"`
	Priority    string         `gorm:"default:'normal'" json:"priority"` // low, normal, high, urgent
	Status      string         `gorm:"default:'open'" json:"status"`     // open, completed
	DueDate     *time.Time     `json:"due_date"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Project  Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Section  *Section      `gorm:"foreignKey:SectionID" json:"section,omitempty"`
	Assignee *User         `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Creator  User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Comments []TaskComment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

// TaskComment is a user comment on a task.
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"index" json:"task_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Notification is a per-user message stored for retrieval and pushed
// over the websocket hub on a best-effort basis.
type Notification struct {
	ID        string    `gorm:"primaryKey" json:"id"` // uuid
	UserID    uint      `gorm:"index" json:"user_id"`
	Category  string    `gorm:"index" json:"category"` // task_comment, automation, system
	Message   string    `gorm:"type:text" json:"message"`
	RefType   string    `json:"ref_type"` // task, project
	RefID     uint      `json:"ref_id"`
	RefTitle  string    `json:"ref_title"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
