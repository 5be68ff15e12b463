package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/storage"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
	"github.com/papercomputeco/tutor/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.DriverBehaviors(func(_ context.Context) storage.Driver {
		return inmemory.NewDriver()
	})

	It("returns copies that callers cannot mutate", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()

		cp, err := d.AppendCheckpoint(ctx, &storage.Checkpoint{
			ThreadID: "t", ID: "c1",
			State: storage.ConversationState{Messages: []llm.Message{llm.NewUserMessage("hi")}},
		})
		Expect(err).NotTo(HaveOccurred())
		cp.State.Messages[0].Content = "changed"

		got, err := d.GetCheckpoint(ctx, "t", "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.State.Messages[0].Content).To(Equal("hi"))
	})
})
