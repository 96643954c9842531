package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TryOn represents an archived try-on result
type TryOn struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            string             `bson:"user_id" json:"user_id"`
	ResultID          string             `bson:"result_id" json:"result_id"`
	PromptID          string             `bson:"prompt_id" json:"prompt_id"`
	Category          Category           `bson:"category" json:"category"`
	FileName          string             `bson:"file_name" json:"file_name"`
	ModelImageName    string             `bson:"model_image_name" json:"model_image_name"`
	GarmentImageName  string             `bson:"garment_image_name" json:"garment_image_name"`
	GeneratedImageURL string             `bson:"generated_image_url" json:"generated_image_url"` // S3 key, or engine URL when S3 is off
	Status            string             `bson:"status" json:"status"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	IsDeleted         bool               `bson:"is_deleted" json:"is_deleted"` // Soft delete flag
}
