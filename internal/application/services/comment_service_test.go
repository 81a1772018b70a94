package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

func TestCreateComment_SubjectFollowsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	task := f.task(t, "discuss", alice.ID)
	if _, err := f.tasks.AssignTask(ctx, task.ID, bob.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := f.comments.CreateComment(ctx, ports.CreateCommentRequest{TaskID: task.ID, Text: "first"}, alice.ID); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := f.tasks.CompleteTask(ctx, task.ID, bob.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.comments.CreateComment(ctx, ports.CreateCommentRequest{TaskID: task.ID, Text: "after"}, alice.ID); err != nil {
		t.Fatalf("comment: %v", err)
	}

	// assignment, comment, completion, comment
	sent := f.notifier.all()
	if len(sent) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(sent))
	}
	if sent[1].subject != SubjectCommentOnTask || sent[3].subject != SubjectCommentOnDoneTask {
		t.Fatalf("unexpected subjects: %q, %q", sent[1].subject, sent[3].subject)
	}
	for _, n := range []notification{sent[1], sent[3]} {
		if n.recipients[0] != bob.Email || n.message != `Comment was added to "discuss".` {
			t.Fatalf("unexpected comment notification: %+v", n)
		}
	}

	comments, err := f.comments.TaskComments(ctx, task.ID, bob.ID)
	if err != nil {
		t.Fatalf("task comments: %v", err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].AuthorID != alice.ID {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}

func TestCreateComment_Access(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	mallory := f.user(t, "mallory")
	task := f.task(t, "closed", alice.ID)

	if _, err := f.comments.CreateComment(ctx, ports.CreateCommentRequest{TaskID: task.ID, Text: "hi"}, mallory.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.comments.CreateComment(ctx, ports.CreateCommentRequest{TaskID: task.ID, Text: "  "}, alice.ID); !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.comments.TaskComments(ctx, task.ID, mallory.ID); !errors.Is(err, entities.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.comments.TaskComments(ctx, 31337, alice.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
