package async

import (
	"context"
	"errors"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// TaskError reports the failure of one named task.
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// RunParallel executes tasks in parallel and waits for all of them.
// Failures are returned as one joined error of *TaskError values, in task order.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "aws", Func: listAWS},
//	    {Name: "databricks", Func: listDatabricks},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    log.Printf("some providers failed: %v", err)
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		index int
		err   error
	}

	resultChan := make(chan result, len(tasks))

	for i, task := range tasks {
		go func() {
			resultChan <- result{index: i, err: task.Func(ctx)}
		}()
	}

	errs := make([]error, len(tasks))
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil {
			errs[res.index] = &TaskError{Name: tasks[res.index].Name, Err: res.err}
		}
	}

	return errors.Join(errs...)
}

// Failed returns the names of the tasks that failed in an error from RunParallel.
func Failed(err error) []string {
	if err == nil {
		return nil
	}
	var names []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var te *TaskError
			if errors.As(e, &te) {
				names = append(names, te.Name)
			}
		}
		return names
	}
	var te *TaskError
	if errors.As(err, &te) {
		names = append(names, te.Name)
	}
	return names
}
