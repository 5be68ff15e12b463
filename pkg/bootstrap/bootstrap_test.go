package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/bootstrap"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/eventstream/nop"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
	"github.com/papercomputeco/tutor/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/tutor/pkg/utils/test"
)

var _ = Describe("Open", func() {
	var (
		ctx context.Context
		cfg *config.Config
		gen *testutils.MockGenerator
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.Storage.Driver = bootstrap.DriverMemory
		gen = testutils.NewMockGenerator(
			testutils.CorrectionJSON("I go school yesterday", "I went to school yesterday", "grammar:tense", "tense-confusion"),
		)
	})

	It("wires a runtime that runs turns end to end", func() {
		publisher := testutils.NewMockPublisher()
		rt, err := bootstrap.Open(ctx, bootstrap.Options{Config: cfg, Generator: gen, Publisher: publisher})
		Expect(err).NotTo(HaveOccurred())

		result, err := rt.Pipeline.RunTurn(ctx, "t1", "u1", "I go school yesterday")
		Expect(err).NotTo(HaveOccurred())
		Expect(*result.MistakePattern).To(Equal("tense-confusion"))

		Expect(rt.Close()).To(Succeed())
		Expect(publisher.Events()).To(HaveLen(1))
	})

	It("honors the recurrence settings", func() {
		cfg.Recurrence.MinFrequency = 2
		rt, err := bootstrap.Open(ctx, bootstrap.Options{Config: cfg, Generator: gen})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rt.Close)

		first, err := rt.Pipeline.RunTurn(ctx, "t1", "u1", "I go school yesterday")
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Insight).To(BeEmpty())

		second, err := rt.Pipeline.RunTurn(ctx, "t1", "u1", "I go school yesterday")
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Insight).To(ContainSubstring("(2회)"))
	})

	It("rejects an unknown recurrence policy", func() {
		cfg.Recurrence.Policy = "forever"
		_, err := bootstrap.Open(ctx, bootstrap.Options{Config: cfg, Generator: gen})
		Expect(err).To(MatchError(ContainSubstring("unknown recurrence policy")))
	})
})

var _ = Describe("OpenDriver", func() {
	It("opens the in-memory driver", func() {
		d, err := bootstrap.OpenDriver(context.Background(), config.StorageConfig{Driver: "memory"}, testLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens SQLite at the configured path", func() {
		dir, err := os.MkdirTemp("", "bootstrap-sqlite-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		d, err := bootstrap.OpenDriver(context.Background(), config.StorageConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dir, "tutor.sqlite"),
		}, testLogger())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)
		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
	})

	It("requires a DSN for postgres", func() {
		_, err := bootstrap.OpenDriver(context.Background(), config.StorageConfig{Driver: "postgres"}, testLogger())
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn is required")))
	})

	It("rejects unknown drivers", func() {
		_, err := bootstrap.OpenDriver(context.Background(), config.StorageConfig{Driver: "redis"}, testLogger())
		Expect(err).To(MatchError(ContainSubstring("unknown storage driver")))
	})
})

var _ = Describe("NewPublisher", func() {
	It("falls back to the no-op publisher without brokers", func() {
		p, err := bootstrap.NewPublisher(config.EventStreamConfig{KafkaTopic: "t"}, testLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("creates a kafka publisher when brokers are configured", func() {
		p, err := bootstrap.NewPublisher(config.EventStreamConfig{KafkaBrokers: "localhost:9092", KafkaTopic: "tutor.turns"}, testLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})
})

var _ = Describe("NewGenerator", func() {
	It("builds the ollama provider without credentials", func() {
		dir, err := os.MkdirTemp("", "bootstrap-gen-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		gen, err := bootstrap.NewGenerator(config.GenerationConfig{Provider: "ollama"}, dir, testLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(gen.Name()).To(Equal("ollama"))
	})

	It("rejects unknown providers", func() {
		_, err := bootstrap.NewGenerator(config.GenerationConfig{Provider: "mystery"}, "", testLogger())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("OpenStores", func() {
	It("opens the storage services without a generator", func() {
		cfg := config.NewDefaultConfig()
		cfg.Storage.Driver = bootstrap.DriverMemory

		stores, err := bootstrap.OpenStores(context.Background(), cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(stores.Close)

		p, err := stores.Profiles.GetOrCreate(context.Background(), "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.UserID).To(Equal("u1"))
	})
})
