package tutorcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	tutorcmder "github.com/papercomputeco/tutor/cmd/tutor"
)

var _ = Describe("NewTutorCmd", func() {
	It("registers every subcommand", func() {
		cmd := tutorcmder.NewTutorCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"serve", "chat", "profile", "mistakes", "stats",
			"checkpoints", "config", "auth", "version",
		))
	})

	It("has global debug and config-dir flags", func() {
		cmd := tutorcmder.NewTutorCmd()
		Expect(cmd.PersistentFlags().Lookup("debug").Shorthand).To(Equal("d"))
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("runs a subcommand through the root", func() {
		cmd := tutorcmder.NewTutorCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"config", "get", "recurrence.policy", "--config-dir", GinkgoT().TempDir()})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("last_seen"))
	})
})
