// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

//go:build integration

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/harborlight/harborlight/internal/auth"
)

var _ = Describe("Credential flows", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		env.resetState(ctx)
	})

	Describe("Invite registration", func() {
		BeforeEach(func() {
			now := time.Now()
			Expect(env.Invites.Create(ctx, &auth.Invite{
				Code:      "ABC123",
				Role:      auth.RoleEditor,
				ExpiresAt: now.Add(auth.InviteExpiry),
				CreatedAt: now,
			})).To(Succeed())
		})

		It("registers once and rejects reuse of the code", func() {
			resp := env.call(http.MethodPost, "/api/auth/register", map[string]string{
				"code": "ABC123", "name": "Eddie Editor", "email": "eddie@org.com", "password": "EditorPass1!",
			}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusCreated), resp.String())
			s := decodeSession(resp)
			Expect(s.User.Role).To(Equal("editor"))

			invite, err := env.Invites.GetByCode(ctx, "ABC123")
			Expect(err).NotTo(HaveOccurred())
			Expect(invite.Used).To(BeTrue())
			Expect(invite.UsedBy).NotTo(BeNil())
			Expect(invite.UsedBy.String()).To(Equal(s.User.ID))

			resp = env.call(http.MethodPost, "/api/auth/register", map[string]string{
				"code": "ABC123", "name": "Second", "email": "second@org.com", "password": "EditorPass1!",
			}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
			Expect(errorCode(resp)).To(Equal(auth.CodeInvalidInvite))

			_, err = env.Accounts.GetByEmail(ctx, "second@org.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("lets exactly one of several concurrent registrations win", func() {
			const attempts = 5
			statuses := make([]int, attempts)
			var wg sync.WaitGroup
			for i := range attempts {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					resp, err := env.client.R().SetBody(map[string]string{
						"code":     "ABC123",
						"name":     "Racer",
						"email":    "racer" + string(rune('a'+i)) + "@org.com",
						"password": "RacerPass1!",
					}).Post("/api/auth/register")
					Expect(err).NotTo(HaveOccurred())
					statuses[i] = resp.StatusCode()
				}()
			}
			wg.Wait()

			Expect(statuses).To(ContainElement(http.StatusCreated))
			created := 0
			for _, s := range statuses {
				if s == http.StatusCreated {
					created++
				} else {
					Expect(s).To(Equal(http.StatusBadRequest))
				}
			}
			Expect(created).To(Equal(1))

			accounts, err := env.Accounts.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(HaveLen(1))
		})
	})

	Describe("Password reset", func() {
		BeforeEach(func() {
			env.seedAccount(ctx, "admin@org.com", "OldPass123!", auth.RoleAdmin)
		})

		It("answers identically for known and unknown emails", func() {
			known := env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "admin@org.com"}, "")
			unknown := env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "absent@x.com"}, "")

			Expect(known.StatusCode()).To(Equal(http.StatusOK))
			Expect(unknown.StatusCode()).To(Equal(known.StatusCode()))
			Expect(unknown.Body()).To(Equal(known.Body()))
			Expect(env.mail.count()).To(Equal(1))
		})

		It("redeems a reset token exactly once", func() {
			env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "admin@org.com"}, "")
			token := env.mail.extract(resetTokenPattern)

			resp := env.call(http.MethodPost, "/api/auth/reset-password",
				map[string]string{"token": token, "password": "NewPass123!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusOK), resp.String())

			resp = env.call(http.MethodPost, "/api/auth/reset-password",
				map[string]string{"token": token, "password": "Another1!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
			Expect(errorCode(resp)).To(Equal(auth.CodeInvalidOrExpiredToken))

			resp = env.call(http.MethodPost, "/api/auth/login",
				map[string]string{"email": "admin@org.com", "password": "NewPass123!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		})

		It("lets only one concurrent redemption succeed", func() {
			env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "admin@org.com"}, "")
			token := env.mail.extract(resetTokenPattern)

			const attempts = 4
			statuses := make([]int, attempts)
			var wg sync.WaitGroup
			for i := range attempts {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					resp, err := env.client.R().
						SetBody(map[string]string{"token": token, "password": "Concurrent1!"}).
						Post("/api/auth/reset-password")
					Expect(err).NotTo(HaveOccurred())
					statuses[i] = resp.StatusCode()
				}()
			}
			wg.Wait()

			ok := 0
			for _, s := range statuses {
				if s == http.StatusOK {
					ok++
				}
			}
			Expect(ok).To(Equal(1))
		})

		It("invalidates an older link when a new one is requested", func() {
			env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "admin@org.com"}, "")
			first := env.mail.extract(resetTokenPattern)
			env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "admin@org.com"}, "")
			second := env.mail.extract(resetTokenPattern)
			Expect(second).NotTo(Equal(first))

			resp := env.call(http.MethodPost, "/api/auth/reset-password",
				map[string]string{"token": first, "password": "NewPass123!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))

			resp = env.call(http.MethodPost, "/api/auth/reset-password",
				map[string]string{"token": second, "password": "NewPass123!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			env.seedAccount(ctx, "admin@org.com", "CorrectPass1!", auth.RoleAdmin)
		})

		It("returns an independent 401 for each wrong password", func() {
			for range 3 {
				resp := env.call(http.MethodPost, "/api/auth/login",
					map[string]string{"email": "admin@org.com", "password": "WrongPass1!"}, "")
				Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))
				Expect(errorCode(resp)).To(Equal(auth.CodeInvalidCredentials))
			}

			resp := env.call(http.MethodPost, "/api/auth/login",
				map[string]string{"email": "admin@org.com", "password": "CorrectPass1!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		})

		It("refuses inactive accounts with the same error", func() {
			account := env.seedAccount(ctx, "idle@org.com", "IdlePass123!", auth.RoleViewer)
			account.Active = false
			Expect(env.Accounts.Update(ctx, account)).To(Succeed())

			resp := env.call(http.MethodPost, "/api/auth/login",
				map[string]string{"email": "idle@org.com", "password": "IdlePass123!"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(resp)).To(Equal(auth.CodeInvalidCredentials))
		})
	})

	Describe("Role gating", func() {
		It("separates viewers, editors and admins", func() {
			env.seedAccount(ctx, "viewer@org.com", "ViewerPass1!", auth.RoleViewer)
			env.seedAccount(ctx, "admin@org.com", "AdminPass1!", auth.RoleAdmin)
			app := env.seedApplication(ctx, "applicant@example.com", "Harbor Internship")

			viewer := decodeSession(env.call(http.MethodPost, "/api/auth/login",
				map[string]string{"email": "viewer@org.com", "password": "ViewerPass1!"}, "")).Token
			admin := decodeSession(env.call(http.MethodPost, "/api/auth/login",
				map[string]string{"email": "admin@org.com", "password": "AdminPass1!"}, "")).Token

			Expect(env.call(http.MethodGet, "/api/admin/accounts", nil, "").StatusCode()).To(Equal(http.StatusUnauthorized))
			Expect(env.call(http.MethodGet, "/api/admin/accounts", nil, viewer).StatusCode()).To(Equal(http.StatusForbidden))
			Expect(env.call(http.MethodGet, "/api/admin/accounts", nil, admin).StatusCode()).To(Equal(http.StatusOK))
			Expect(env.call(http.MethodGet, "/api/admin/applications", nil, viewer).StatusCode()).To(Equal(http.StatusOK))

			path := "/api/admin/applications/" + app.ID.String() + "/status"
			Expect(env.call(http.MethodPatch, path, map[string]string{"status": "accepted"}, viewer).StatusCode()).
				To(Equal(http.StatusForbidden))
			resp := env.call(http.MethodPatch, path, map[string]string{"status": "accepted"}, admin)
			Expect(resp.StatusCode()).To(Equal(http.StatusOK), resp.String())
			Expect(env.mail.count()).To(Equal(1), "status change notifies the applicant")
		})
	})

	Describe("Applicant access", func() {
		BeforeEach(func() {
			env.seedApplication(ctx, "applicant@example.com", "Harbor Internship")
		})

		It("exchanges an emailed code for a token that lists applications", func() {
			resp := env.call(http.MethodPost, "/api/applicant/access", map[string]string{"email": "Applicant@Example.com"}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			code := env.mail.extract(accessCodePattern)

			resp = env.call(http.MethodPost, "/api/applicant/verify",
				map[string]string{"email": "applicant@example.com", "code": code}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusOK), resp.String())
			var grant auth.AccessGrant
			Expect(json.Unmarshal(resp.Body(), &grant)).To(Succeed())

			resp = env.call(http.MethodPost, "/api/applicant/verify",
				map[string]string{"email": "applicant@example.com", "code": code}, "")
			Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))

			resp = env.call(http.MethodGet, "/api/applicant/applications", nil, grant.Token)
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(resp.String()).To(ContainSubstring("Harbor Internship"))
		})

		It("sends nothing for unknown emails but answers the same", func() {
			known := env.call(http.MethodPost, "/api/applicant/access", map[string]string{"email": "applicant@example.com"}, "")
			unknown := env.call(http.MethodPost, "/api/applicant/access", map[string]string{"email": "nobody@example.com"}, "")
			Expect(unknown.Body()).To(Equal(known.Body()))
			Expect(env.mail.count()).To(Equal(1))
		})
	})

	Describe("Token pruning", func() {
		It("removes used and expired tokens", func() {
			env.seedAccount(ctx, "admin@org.com", "OldPass123!", auth.RoleAdmin)
			env.call(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "admin@org.com"}, "")
			token := env.mail.extract(resetTokenPattern)
			env.call(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "NewPass123!"}, "")

			n, err := env.Tokens.DeleteExpired(ctx, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">=", 1))

			_, err = env.Tokens.Get(ctx, auth.PurposePasswordReset, auth.HashToken(token))
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})
