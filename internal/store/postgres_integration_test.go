// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tutorcab/tutorcab/internal/kv"
	"github.com/tutorcab/tutorcab/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(migrator.Close()).To(Succeed()) })
	})

	It("starts at version 0 with every migration pending", func() {
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Current).To(BeZero())
		Expect(st.Pending).NotTo(BeEmpty())
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Current).To(Equal(st.Latest))
		Expect(st.Dirty).To(BeFalse())
		Expect(st.Pending).To(BeEmpty())
	})

	It("rolls back and re-applies one step", func() {
		v, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())

		Expect(migrator.Steps(-1)).To(Succeed())
		after, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(after).To(Equal(v - 1))

		Expect(migrator.Steps(1)).To(Succeed())
	})

	It("is idempotent when already up to date", func() {
		Expect(migrator.Up()).To(Succeed())
	})
})

var _ = Describe("kv.PostgresStore", Ordered, func() {
	var s *kv.PostgresStore
	ctx := context.Background()

	BeforeAll(func() {
		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Up()).To(Succeed())
		Expect(m.Close()).To(Succeed())

		pool, err := store.Connect(ctx, connStr, 10*time.Second)
		Expect(err).NotTo(HaveOccurred())
		s = kv.NewPostgresStore(pool)
		DeferCleanup(func() { Expect(s.Close()).To(Succeed()) })
	})

	It("reports connectivity", func() {
		Expect(kv.Ping(ctx, s)).To(Succeed())
	})

	It("returns ErrNotFound for an absent key", func() {
		_, err := s.Get(ctx, "tutor:missing")
		Expect(err).To(MatchError(kv.ErrNotFound))
	})

	It("overwrites on Set", func() {
		Expect(s.Set(ctx, "user:+79990000001", "a")).To(Succeed())
		Expect(s.Set(ctx, "user:+79990000001", "b")).To(Succeed())
		v, err := s.Get(ctx, "user:+79990000001")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("b"))
	})

	It("deletes idempotently", func() {
		Expect(s.Set(ctx, "session:x", "{}")).To(Succeed())
		Expect(s.Delete(ctx, "session:x")).To(Succeed())
		Expect(s.Delete(ctx, "session:x")).To(Succeed())
		_, err := s.Get(ctx, "session:x")
		Expect(err).To(MatchError(kv.ErrNotFound))
	})

	It("keeps prefixed namespaces apart", func() {
		a := kv.WithPrefix(s, "a/")
		b := kv.WithPrefix(s, "b/")
		Expect(a.Set(ctx, "k", "1")).To(Succeed())
		_, err := b.Get(ctx, "k")
		Expect(err).To(MatchError(kv.ErrNotFound))
	})
})
