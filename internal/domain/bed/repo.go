package bed

import "context"

type Repository interface {
	// InitializeIfEmpty creates beds 1..count when the table is empty and
	// reports whether it did.
	InitializeIfEmpty(ctx context.Context, count int) (bool, error)
	// List returns beds in ascending id order.
	List(ctx context.Context, f Filter) ([]*Bed, error)
	// Book marks a free bed as booked. It fails with NotFound when the bed
	// does not exist or is already booked.
	Book(ctx context.Context, id int, patientName, time string) (*Bed, error)
	// Unbook frees a booked bed. It fails with NotFound when the bed does not
	// exist or is not booked.
	Unbook(ctx context.Context, id int) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	Stats(ctx context.Context) (Stats, error)
}
