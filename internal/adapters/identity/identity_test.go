package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/cadence/internal/adapters/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDenied(t *testing.T) {
	Convey("Given provider errors", t, func() {
		So(identity.Denied(&identity.Error{Code: "INVALID_PASSWORD", Kind: identity.ErrInvalidCredentials}),
			ShouldEqual, "ACCESS DENIED: INVALID PASSWORD")
		So(identity.Denied(&identity.Error{Code: "user-not-found", Kind: identity.ErrInvalidCredentials}),
			ShouldEqual, "ACCESS DENIED: USER NOT FOUND")
		So(identity.Denied(errors.New("boom")), ShouldEqual, "ACCESS DENIED: SERVICE UNAVAILABLE")
	})
}

func TestStaticAuthenticator(t *testing.T) {
	Convey("Given a static user table", t, func() {
		ctx := context.Background()
		auth := identity.NewStatic(map[string]string{"Ops@Example.com": "hunter2"})

		Convey("When the password matches", func() {
			id, err := auth.SignIn(ctx, "  ops@example.com ", "hunter2")

			Convey("Then the normalized identity is returned", func() {
				So(err, ShouldBeNil)
				So(id.Email, ShouldEqual, "ops@example.com")
				So(id.LocalID, ShouldHaveLength, 16)
			})
		})

		Convey("When the password is wrong", func() {
			_, err := auth.SignIn(ctx, "ops@example.com", "nope")

			Convey("Then it is an invalid credentials error", func() {
				So(errors.Is(err, identity.ErrInvalidCredentials), ShouldBeTrue)
				So(identity.Denied(err), ShouldEqual, "ACCESS DENIED: INVALID LOGIN CREDENTIALS")
			})
		})

		Convey("When the user is unknown", func() {
			_, err := auth.SignIn(ctx, "ghost@example.com", "hunter2")
			So(errors.Is(err, identity.ErrInvalidCredentials), ShouldBeTrue)
		})

		Convey("When fields are missing", func() {
			_, errEmail := auth.SignIn(ctx, "", "x")
			_, errPassword := auth.SignIn(ctx, "ops@example.com", "")

			So(identity.Denied(errEmail), ShouldEqual, "ACCESS DENIED: MISSING EMAIL")
			So(identity.Denied(errPassword), ShouldEqual, "ACCESS DENIED: MISSING PASSWORD")
		})
	})
}

func TestToolkitClient(t *testing.T) {
	Convey("Given a fake identity toolkit", t, func() {
		ctx := context.Background()
		var gotKey string
		var gotBody map[string]any

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.URL.Query().Get("key")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			if r.URL.Path != "/v1/accounts:signInWithPassword" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			switch gotBody["password"] {
			case "right":
				_ = json.NewEncoder(w).Encode(map[string]string{
					"localId": "uid-1", "email": "ops@example.com", "idToken": "tok",
				})
			case "flood":
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled"}}`))
			case "crash":
				w.WriteHeader(http.StatusInternalServerError)
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
			}
		}))
		defer srv.Close()

		client := identity.NewToolkitClient(srv.URL+"/v1/", "secret key", identity.WithTimeout(time.Second))

		Convey("When credentials are accepted", func() {
			id, err := client.SignIn(ctx, "OPS@example.com", "right")

			Convey("Then the identity and request shape are correct", func() {
				So(err, ShouldBeNil)
				So(id, ShouldResemble, identity.Identity{Email: "ops@example.com", LocalID: "uid-1", IDToken: "tok"})
				So(gotKey, ShouldEqual, "secret key")
				So(gotBody["email"], ShouldEqual, "ops@example.com")
				So(gotBody["returnSecureToken"], ShouldEqual, true)
			})
		})

		Convey("When the password is rejected", func() {
			_, err := client.SignIn(ctx, "ops@example.com", "wrong")

			So(errors.Is(err, identity.ErrInvalidCredentials), ShouldBeTrue)
			So(identity.Denied(err), ShouldEqual, "ACCESS DENIED: INVALID PASSWORD")
		})

		Convey("When the provider throttles", func() {
			_, err := client.SignIn(ctx, "ops@example.com", "flood")
			So(errors.Is(err, identity.ErrRateLimited), ShouldBeTrue)
		})

		Convey("When the provider fails", func() {
			_, err := client.SignIn(ctx, "ops@example.com", "crash")
			So(errors.Is(err, identity.ErrUnavailable), ShouldBeTrue)
		})

		Convey("When the provider is unreachable", func() {
			down := identity.NewToolkitClient("http://127.0.0.1:1", "k", identity.WithTimeout(200*time.Millisecond))
			_, err := down.SignIn(ctx, "ops@example.com", "right")
			So(errors.Is(err, identity.ErrUnavailable), ShouldBeTrue)
		})
	})
}

func TestThrottled(t *testing.T) {
	Convey("Given a throttled authenticator with burst 2", t, func() {
		ctx := context.Background()
		auth := identity.NewThrottled(identity.NewStatic(map[string]string{"a@x.io": "pw"}), 0.001, 2)

		Convey("When the same email exceeds the burst", func() {
			_, err1 := auth.SignIn(ctx, "a@x.io", "bad")
			_, err2 := auth.SignIn(ctx, "A@X.io", "pw")
			_, err3 := auth.SignIn(ctx, "a@x.io", "pw")

			Convey("Then the third attempt is rate limited", func() {
				So(errors.Is(err1, identity.ErrInvalidCredentials), ShouldBeTrue)
				So(err2, ShouldBeNil)
				So(errors.Is(err3, identity.ErrRateLimited), ShouldBeTrue)
				So(identity.Denied(err3), ShouldEqual, "ACCESS DENIED: TOO MANY ATTEMPTS TRY LATER")
			})
		})

		Convey("When a different email signs in", func() {
			_, _ = auth.SignIn(ctx, "a@x.io", "bad")
			_, _ = auth.SignIn(ctx, "a@x.io", "bad")
			_, err := auth.SignIn(ctx, "b@x.io", "pw")

			Convey("Then it has its own bucket", func() {
				So(errors.Is(err, identity.ErrInvalidCredentials), ShouldBeTrue)
			})
		})
	})
}
