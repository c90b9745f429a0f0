// ABOUTME: Google Tasks operations and the full task listing used by sync
// ABOUTME: Task references may carry their list as "list/task"; bare ids use the default list
package google

import (
	"context"
	"strings"
	"time"

	"google.golang.org/api/tasks/v1"

	"github.com/harperreed/deskhand/models"
)

const defaultTaskList = "@default"

// TaskRef joins a list id and task id into one reference.
func TaskRef(listID, taskID string) string {
	if listID == "" || listID == defaultTaskList {
		return taskID
	}
	return listID + "/" + taskID
}

func splitTaskRef(ref string) (string, string) {
	if i := strings.LastIndex(ref, "/"); i > 0 {
		return ref[:i], ref[i+1:]
	}
	return defaultTaskList, ref
}

// GetTasks lists tasks on the default list.
func (p *Provider) GetTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("getTasks", err)
	}

	limit := int64(50)
	if q.MaxResults > 0 {
		limit = int64(q.MaxResults)
	}

	resp, err := s.tasks.Tasks.List(defaultTaskList).
		Context(ctx).
		ShowCompleted(q.ShowCompleted).
		ShowHidden(q.ShowCompleted).
		MaxResults(limit).
		Do()
	if err != nil {
		return nil, p.fail("getTasks", err)
	}

	out := make([]models.Task, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, toTask(defaultTaskList, item))
	}
	return out, nil
}

// CreateTask adds a task to the default list.
func (p *Provider) CreateTask(ctx context.Context, details models.TaskDetails) (*models.Task, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("createTask", err)
	}

	task := &tasks.Task{Title: details.Title, Notes: details.Notes}
	if details.Due != nil {
		task.Due = details.Due.UTC().Format(time.RFC3339)
	}

	created, err := s.tasks.Tasks.Insert(defaultTaskList, task).Context(ctx).Do()
	if err != nil {
		return nil, p.fail("createTask", err)
	}

	out := toTask(defaultTaskList, created)
	return &out, nil
}

// UpdateTask patches the fields set on update.
func (p *Provider) UpdateTask(ctx context.Context, update models.TaskUpdate) (*models.Task, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("updateTask", err)
	}

	listID, taskID := splitTaskRef(update.ID)
	patch := &tasks.Task{}
	if update.Title != nil {
		patch.Title = *update.Title
	}
	if update.Notes != nil {
		patch.Notes = *update.Notes
		patch.ForceSendFields = append(patch.ForceSendFields, "Notes")
	}
	if update.Due != nil {
		patch.Due = update.Due.UTC().Format(time.RFC3339)
	}
	if update.Status != nil {
		patch.Status = *update.Status
		if *update.Status == models.TaskStatusNeedsAction {
			// Reopening requires clearing the completion timestamp
			patch.NullFields = append(patch.NullFields, "Completed")
		}
	}

	updated, err := s.tasks.Tasks.Patch(listID, taskID, patch).Context(ctx).Do()
	if err != nil {
		return nil, p.fail("updateTask", err)
	}

	out := toTask(listID, updated)
	return &out, nil
}

// DeleteTask removes a task.
func (p *Provider) DeleteTask(ctx context.Context, id string) error {
	s, err := p.services(ctx)
	if err != nil {
		return p.fail("deleteTask", err)
	}

	listID, taskID := splitTaskRef(id)
	if err := s.tasks.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return p.fail("deleteTask", err)
	}
	return nil
}

// ListAllTasks returns every task across every list, completed included.
func (p *Provider) ListAllTasks(ctx context.Context) ([]models.Task, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("listAllTasks", err)
	}

	lists, err := s.tasks.Tasklists.List().Context(ctx).MaxResults(100).Do()
	if err != nil {
		return nil, p.fail("listAllTasks", err)
	}

	var out []models.Task
	for _, list := range lists.Items {
		pageToken := ""
		for {
			call := s.tasks.Tasks.List(list.Id).
				Context(ctx).
				ShowCompleted(true).
				ShowHidden(true).
				MaxResults(100)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			resp, err := call.Do()
			if err != nil {
				return nil, p.fail("listAllTasks", err)
			}
			for _, item := range resp.Items {
				out = append(out, toTask(list.Id, item))
			}

			pageToken = resp.NextPageToken
			if pageToken == "" {
				break
			}
		}
	}
	return out, nil
}

func toTask(listID string, t *tasks.Task) models.Task {
	out := models.Task{
		ID:     t.Id,
		ListID: listID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			out.Due = &due
		}
	}
	if t.Completed != nil && *t.Completed != "" {
		if done, err := time.Parse(time.RFC3339, *t.Completed); err == nil {
			out.Completed = &done
		}
	}
	return out
}
