package db

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mockDuplicateKeyError builds a WriteException the way the driver reports an
// E11000 on the given index.
func mockDuplicateKeyError(index, key string) error {
	mongoErr := mongo.WriteError{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.collection index: %s dup key: { : \"%s\" }", index, key),
	}
	return mongo.WriteException{WriteErrors: []mongo.WriteError{mongoErr}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return nil
	}

	err := WithRetries(operation, 3, IsTransientError)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_FailureNotRetryable(t *testing.T) {
	var opCalled int
	expectedErr := errors.New("some other error")
	operation := func() error {
		opCalled++
		return expectedErr
	}

	err := WithRetries(operation, 3, IsTransientError)
	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected error %v, got %v", expectedErr, err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_UniqueFieldViolationIsNotRetried(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return mockDuplicateKeyError("email_1", "a@example.com")
	}

	err := Try(operation)
	if err == nil {
		t.Fatal("Expected an error, got nil")
	}
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("Expected a duplicate key error, got %T: %v", err, err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	collidingID := primitive.NewObjectID()

	operation := func() error {
		opCalled++
		return mockDuplicateKeyError("_id_", collidingID.Hex())
	}

	maxRetries := 3
	err := WithRetries(operation, maxRetries, IsTransientError)
	if err == nil {
		t.Fatal("Expected a duplicate key error, got nil")
	}
	if !IsIDCollision(err) {
		t.Errorf("Expected an _id collision, got %T: %v", err, err)
	}
	if opCalled != maxRetries+1 {
		t.Errorf("Expected operation to be called %d times, got %d", maxRetries+1, opCalled)
	}
}

func TestWithRetries_CollisionResolves(t *testing.T) {
	taken := primitive.NewObjectID()
	ids := []primitive.ObjectID{taken, taken, primitive.NewObjectID()}
	inserted := map[primitive.ObjectID]bool{taken: true}

	var opCalled int
	operation := func() error {
		id := ids[opCalled]
		opCalled++
		if inserted[id] {
			return mockDuplicateKeyError("_id_", id.Hex())
		}
		inserted[id] = true
		return nil
	}

	if err := WithRetries(operation, 3, IsTransientError); err != nil {
		t.Fatalf("Expected no error as collision should resolve, got: %v", err)
	}
	if opCalled != 3 {
		t.Errorf("Expected operation to be called 3 times, got %d", opCalled)
	}
	if len(inserted) != 2 {
		t.Errorf("Expected 2 unique IDs to be inserted, got %d", len(inserted))
	}
}

func TestIsTransientError_Nil(t *testing.T) {
	if IsTransientError(nil) {
		t.Error("nil must not be transient")
	}
}
