package discountRepo

import (
	"context"
	"errors"
	"time"

	"lacquer/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrInsufficientBalance is returned when a debit exceeds the card balance.
var ErrInsufficientBalance = errors.New("gift card balance too low")

func (r *mongoCouponRepo) Create(ctx context.Context, coupon models.Coupon) (string, error) {
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	coupon.CreatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, coupon)
	if err != nil {
		return "", err
	}
	return coupon.ID, nil
}

func (r *mongoCouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&coupon)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *mongoCouponRepo) IncrementRedeemed(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$inc": bson.M{"redeemed": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoCouponRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("coupon not found")
	}
	return nil
}

func (r *mongoGiftCardRepo) Create(ctx context.Context, card models.GiftCard) (string, error) {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	card.CreatedAt = time.Now()
	card.UpdatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, card)
	if err != nil {
		return "", err
	}
	return card.ID, nil
}

func (r *mongoGiftCardRepo) GetByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&card)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Debit atomically draws down the balance; the filter guards against a
// concurrent debit racing it below zero.
func (r *mongoGiftCardRepo) Debit(ctx context.Context, id string, amountCents int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "active": true, "balanceCents": bson.M{"$gte": amountCents}},
		bson.M{
			"$inc": bson.M{"balanceCents": -amountCents},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientBalance
	}
	return nil
}
