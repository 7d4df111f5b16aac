package discountRepo

import (
	"context"

	"lacquer/database"
	"lacquer/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// CouponRepository is the persistence surface for coupon codes.
type CouponRepository interface {
	Create(ctx context.Context, coupon models.Coupon) (string, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	IncrementRedeemed(ctx context.Context, id string) error
	DeleteByID(ctx context.Context, id string) error
}

// GiftCardRepository is the persistence surface for stored-value cards.
type GiftCardRepository interface {
	Create(ctx context.Context, card models.GiftCard) (string, error)
	GetByCode(ctx context.Context, code string) (*models.GiftCard, error)
	Debit(ctx context.Context, id string, amountCents int64) error
}

type mongoCouponRepo struct {
	coll *mongo.Collection
}

// NewMongoCouponRepo returns a CouponRepository backed by MongoDB.
func NewMongoCouponRepo() CouponRepository {
	db := database.MongoClient.Database("lacquer")
	return &mongoCouponRepo{coll: db.Collection("coupons")}
}

type mongoGiftCardRepo struct {
	coll *mongo.Collection
}

// NewMongoGiftCardRepo returns a GiftCardRepository backed by MongoDB.
func NewMongoGiftCardRepo() GiftCardRepository {
	db := database.MongoClient.Database("lacquer")
	return &mongoGiftCardRepo{coll: db.Collection("gift_cards")}
}
