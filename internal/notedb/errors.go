package notedb

import "fmt"

// InvalidIDError reports an account or group id that cannot be
// sharded into a ref path.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid id: %q", e.ID)
}

// GroupNotFoundError reports a group name with no matching record.
type GroupNotFoundError struct {
	Name string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("group not found: %s", e.Name)
}

// UserNotFoundError reports a user with no matching account ref.
type UserNotFoundError struct {
	Name string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %s", e.Name)
}
