package checkpointscmder_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	checkpointscmder "github.com/papercomputeco/tutor/cmd/tutor/checkpoints"
	"github.com/papercomputeco/tutor/pkg/bootstrap"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/storage"
	testutils "github.com/papercomputeco/tutor/pkg/utils/test"
)

var _ = Describe("Checkpoints command", func() {
	var (
		dir, dbPath string
		ids         []string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "tutor.sqlite")
		ids = nil

		cfg := config.NewDefaultConfig()
		cfg.Storage.SQLitePath = dbPath
		ctx := context.Background()
		stores, err := bootstrap.OpenStores(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())

		state := &storage.ConversationState{ThreadID: "t1", UserID: "minji"}
		for i, text := range []string{"I go school yesterday", "She don't like it"} {
			state.Messages = append(state.Messages, llm.NewUserMessage(text), llm.Message{Role: llm.RoleAssistant, Content: "corrected"})
			state.MessageCount += 2
			if i == 1 {
				state.Summary = "대화 2개 메시지 요약"
			}
			id, err := stores.Checkpoints.Append(ctx, "t1", state, nil)
			Expect(err).NotTo(HaveOccurred())
			ids = append(ids, id)

			Expect(stores.Driver.AppendMessages(ctx,
				&storage.ChatMessage{ThreadID: "t1", UserID: "minji", Role: llm.RoleUser, Content: text, CreatedAt: time.Now()},
				&storage.ChatMessage{ThreadID: "t1", UserID: "minji", Role: llm.RoleAssistant, Content: "corrected", CreatedAt: time.Now()},
			)).To(Succeed())
		}
		Expect(stores.Close()).To(Succeed())
	})

	run := func(args ...string) (string, error) {
		return testutils.RunCommand(checkpointscmder.NewCheckpointsCmd(), dir, "", append(args, "--sqlite", dbPath)...)
	}

	It("lists checkpoints newest first", func() {
		out, err := run("list", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(ids[0]))
		Expect(out).To(ContainSubstring(ids[1]))
		Expect(out).To(ContainSubstring("4 messages"))

		newest := strings.Index(out, ids[1])
		oldest := strings.Index(out, ids[0])
		Expect(newest).To(BeNumerically("<", oldest))
	})

	It("pages with --before", func() {
		out, err := run("list", "t1", "--before", ids[1])
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(ids[0]))
		Expect(out).NotTo(ContainSubstring(ids[1]))
	})

	It("shows the latest checkpoint by default", func() {
		out, err := run("show", "t1", "--json")
		Expect(err).NotTo(HaveOccurred())

		var cp storage.Checkpoint
		Expect(json.Unmarshal([]byte(out), &cp)).To(Succeed())
		Expect(cp.ID).To(Equal(ids[1]))
		Expect(cp.MessageCount).To(Equal(4))
		Expect(cp.State.Summary).To(Equal("대화 2개 메시지 요약"))
	})

	It("shows a specific checkpoint", func() {
		out, err := run("show", "t1", ids[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(ids[0]))
		Expect(out).To(ContainSubstring("I go school yesterday"))
		Expect(out).NotTo(ContainSubstring("She don't like it"))
	})

	It("fails for a thread without checkpoints", func() {
		_, err := run("show", "missing")
		Expect(err).To(MatchError(ContainSubstring("no checkpoints")))
	})

	It("prints the transcript oldest first", func() {
		out, err := run("messages", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Index(out, "I go school yesterday")).To(BeNumerically("<", strings.Index(out, "She don't like it")))
	})

	It("requires confirmation to delete", func() {
		_, err := run("delete", "t1")
		Expect(err).To(MatchError(ContainSubstring("--yes")))

		out, err := run("list", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(ids[0]))
	})

	It("deletes the thread", func() {
		out, err := run("delete", "t1", "--yes")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("2 checkpoints"))

		out, err = run("list", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No checkpoints"))

		out, err = run("messages", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(ContainSubstring("I go school yesterday"))
	})
})
