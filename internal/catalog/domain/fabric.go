package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Fabric is a material the fabrics department sells and garments reference.
type Fabric struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:128;not null;uniqueIndex"`
	Composition string    `json:"composition,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Fabric) TableName() string {
	return "fabrics"
}

func (f *Fabric) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: fabric name is required", ErrValidation)
	}
	return nil
}

// FabricRepository defines the contract for fabric data access
type FabricRepository interface {
	Create(ctx context.Context, fabric *Fabric) error
	FindByID(ctx context.Context, id uint) (*Fabric, error)
	FindByName(ctx context.Context, name string) (*Fabric, error)
	List(ctx context.Context) ([]Fabric, error)
	Update(ctx context.Context, fabric *Fabric) error
	Delete(ctx context.Context, id uint) error
}
