// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

//go:build integration

package account_test

import (
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/mail"
)

var _ = Describe("Account API", func() {
	var alice *browser

	BeforeEach(func() {
		env.truncate()
		alice = newBrowser()
	})

	Describe("registration and sessions", func() {
		It("registers, starts a session and serves the profile", func() {
			body := alice.register("Alice", "Alice@Example.com", "hunter22")
			Expect(body["email"]).To(Equal("alice@example.com"))
			Expect(body["token"]).NotTo(BeEmpty())
			Expect(body).NotTo(HaveKey("password"))
			Expect(body["photo"]).To(Equal(account.DefaultPhoto))

			Expect(alice.loggedIn()).To(BeTrue())

			status, profile := alice.object(http.MethodGet, "/api/users/getuser", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(profile["_id"]).To(Equal(body["_id"]))
			Expect(profile["name"]).To(Equal("Alice"))
		})

		It("rejects a second registration with the same email in any case", func() {
			alice.register("Alice", "alice@example.com", "hunter22")

			status, body := newBrowser().object(http.MethodPost, "/api/users/register", map[string]string{
				"name": "Impostor", "email": "ALICE@example.com", "password": "hunter22",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["message"]).To(Equal("Email has already been registered."))
		})

		It("ends the session on logout", func() {
			alice.register("Alice", "alice@example.com", "hunter22")

			status, body := alice.object(http.MethodGet, "/api/users/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("Successfully logged out."))
			Expect(alice.loggedIn()).To(BeFalse())

			status, _ = alice.object(http.MethodGet, "/api/users/getuser", nil)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})

		It("keeps an issued token valid after logout until it expires", func() {
			alice.register("Alice", "alice@example.com", "hunter22")
			token := alice.sessionCookie()
			Expect(token).NotTo(BeEmpty())

			status, _ := alice.object(http.MethodGet, "/api/users/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(alice.sessionCookie()).To(BeEmpty())

			status, profile := withBearer(token).object(http.MethodGet, "/api/users/getuser", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(profile["email"]).To(Equal("alice@example.com"))
		})

		It("logs in with the right password only", func() {
			alice.register("Alice", "alice@example.com", "hunter22")
			bob := newBrowser()

			status, _ := bob.object(http.MethodPost, "/api/users/login", map[string]string{
				"email": "alice@example.com", "password": "wrong-password",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(bob.loggedIn()).To(BeFalse())

			status, _ = bob.object(http.MethodPost, "/api/users/login", map[string]string{
				"email": "ALICE@example.com", "password": "hunter22",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(bob.loggedIn()).To(BeTrue())
		})
	})

	Describe("profile", func() {
		It("updates profile fields but never the email", func() {
			alice.register("Alice", "alice@example.com", "hunter22")

			status, body := alice.object(http.MethodPatch, "/api/users/updateuser", map[string]string{
				"name": "Alice Liddell", "email": "mallory@example.com", "bio": "Down the rabbit hole",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["name"]).To(Equal("Alice Liddell"))
			Expect(body["bio"]).To(Equal("Down the rabbit hole"))
			Expect(body["email"]).To(Equal("alice@example.com"))
			Expect(body["phone"]).To(Equal(account.DefaultPhone))
		})

		It("changes the password after checking the old one", func() {
			alice.register("Alice", "alice@example.com", "hunter22")

			status, _ := alice.object(http.MethodPatch, "/api/users/changepassword", map[string]string{
				"oldPassword": "not-it", "newPassword": "correct-horse",
			})
			Expect(status).To(Equal(http.StatusBadRequest))

			status, body := alice.object(http.MethodPatch, "/api/users/changepassword", map[string]string{
				"oldPassword": "hunter22", "newPassword": "correct-horse",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["success"]).To(BeTrue())

			status, _ = newBrowser().object(http.MethodPost, "/api/users/login", map[string]string{
				"email": "alice@example.com", "password": "correct-horse",
			})
			Expect(status).To(Equal(http.StatusOK))
		})
	})

	Describe("password reset", func() {
		BeforeEach(func() {
			alice.register("Alice", "alice@example.com", "hunter22")
		})

		It("emails a link whose token resets the password once", func() {
			status, body := newBrowser().object(http.MethodPost, "/api/users/forgotpassword",
				map[string]string{"email": "alice@example.com"})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("Reset Email Sent."))

			msg, ok := env.outbox.last()
			Expect(ok).To(BeTrue())
			Expect(msg.To).To(Equal("alice@example.com"))
			Expect(msg.Subject).To(Equal(mail.ResetSubject))
			Expect(msg.HTMLBody).To(ContainSubstring(frontendURL + "/resetpassword/"))
			Expect(msg.HTMLBody).To(ContainSubstring("Hello Alice"))

			token := lastResetToken()
			status, body = newBrowser().object(http.MethodPut, "/api/users/resetpassword/"+token,
				map[string]string{"password": "brand-new-pw"})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("Password Reset Successful, Please Login."))

			status, _ = newBrowser().object(http.MethodPut, "/api/users/resetpassword/"+token,
				map[string]string{"password": "another-pw"})
			Expect(status).To(Equal(http.StatusNotFound))

			status, _ = newBrowser().object(http.MethodPost, "/api/users/login", map[string]string{
				"email": "alice@example.com", "password": "brand-new-pw",
			})
			Expect(status).To(Equal(http.StatusOK))
		})

		It("invalidates the previous token when a new one is requested", func() {
			guest := newBrowser()
			status, _ := guest.object(http.MethodPost, "/api/users/forgotpassword",
				map[string]string{"email": "alice@example.com"})
			Expect(status).To(Equal(http.StatusOK))
			first := lastResetToken()

			status, _ = guest.object(http.MethodPost, "/api/users/forgotpassword",
				map[string]string{"email": "alice@example.com"})
			Expect(status).To(Equal(http.StatusOK))
			second := lastResetToken()
			Expect(second).NotTo(Equal(first))

			status, _ = guest.object(http.MethodPut, "/api/users/resetpassword/"+first,
				map[string]string{"password": "brand-new-pw"})
			Expect(status).To(Equal(http.StatusNotFound))

			status, _ = guest.object(http.MethodPut, "/api/users/resetpassword/"+second,
				map[string]string{"password": "brand-new-pw"})
			Expect(status).To(Equal(http.StatusOK))
		})

		It("lets exactly one concurrent redemption win", func() {
			status, _ := newBrowser().object(http.MethodPost, "/api/users/forgotpassword",
				map[string]string{"email": "alice@example.com"})
			Expect(status).To(Equal(http.StatusOK))
			token := lastResetToken()

			const attempts = 5
			statuses := make(chan int, attempts)
			var wg sync.WaitGroup
			for range attempts {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					code, _ := newBrowser().object(http.MethodPut, "/api/users/resetpassword/"+token,
						map[string]string{"password": "brand-new-pw"})
					statuses <- code
				}()
			}
			wg.Wait()
			close(statuses)

			wins := 0
			for code := range statuses {
				if code == http.StatusOK {
					wins++
				} else {
					Expect(code).To(Equal(http.StatusNotFound))
				}
			}
			Expect(wins).To(Equal(1))
		})

		It("reports an unknown email", func() {
			status, _ := newBrowser().object(http.MethodPost, "/api/users/forgotpassword",
				map[string]string{"email": "nobody@example.com"})
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})
})
