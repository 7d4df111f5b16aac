package appointmentRepo

import (
	"context"
	"errors"
	"time"

	"lacquer/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrSlotTaken is returned when the requested time slot is already booked.
var ErrSlotTaken = errors.New("time slot already booked")

func (r *mongoAppointmentRepo) CreateAppointment(ctx context.Context, appt models.Appointment) (string, error) {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	appt.CreatedAt = time.Now()

	_, err := r.appointments.InsertOne(ctx, appt)
	if err != nil {
		return "", err
	}
	return appt.ID, nil
}

func (r *mongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.appointments.FindOne(ctx, bson.M{"id": id}).Decode(&appt)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// BookTimeSlot claims the slot for an appointment. A unique index on
// (artistId, date, startTime) turns a double booking into a duplicate-key
// error surfaced as ErrSlotTaken.
func (r *mongoAppointmentRepo) BookTimeSlot(ctx context.Context, booking models.TimeSlotBooking) error {
	booking.CreatedAt = time.Now()
	_, err := r.slots.InsertOne(ctx, booking)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlotTaken
	}
	return err
}
