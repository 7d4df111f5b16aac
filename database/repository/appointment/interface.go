package appointmentRepo

import (
	"context"
	"fmt"

	"lacquer/database"
	"lacquer/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AppointmentRepository persists confirmed bookings and their time slots.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appt models.Appointment) (string, error)
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	BookTimeSlot(ctx context.Context, booking models.TimeSlotBooking) error
}

type mongoAppointmentRepo struct {
	appointments *mongo.Collection
	slots        *mongo.Collection
}

// NewMongoAppointmentRepo returns an AppointmentRepository backed by MongoDB.
func NewMongoAppointmentRepo() AppointmentRepository {
	db := database.MongoClient.Database("lacquer")
	repo := &mongoAppointmentRepo{
		appointments: db.Collection("appointments"),
		slots:        db.Collection("time_slots"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
