package http

import (
	"net/http"

	"moneypall/internal/auth"
	"moneypall/internal/log"
)

// handleLogin issues a one-time code. Delivery failures still answer 200:
// the code exists, the client is told it may not arrive.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		badBody(w, r, keyError, err)
		return
	}

	ch, err := s.auth.RequestLogin(r.Context(), p.Get("email"))
	if err != nil {
		writeError(w, r, keyError, err)
		return
	}

	resp := Message(http.StatusOK, "message", "OTP sent to your email.")
	if ch.DeliveryErr != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Login code issued but not delivered",
			log.FieldCodeID, ch.CodeID,
			log.FieldError, ch.DeliveryErr)
		resp.Field("warning", "The code was generated but the email could not be sent. Try again shortly.")
	}
	resp.Write(w)
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		badBody(w, r, keyDetail, err)
		return
	}

	_, token, err := s.auth.VerifyOTP(r.Context(), p.Get("email"), p.Get("code"))
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}

	NewJSONResponse().
		Field("detail", "Welcome!").
		Field("token", token).
		Write(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		badBody(w, r, keyDetail, err)
		return
	}

	_, token, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Email:     p.Get("email"),
		Password:  p.GetRaw("password"),
		FirstName: p.Get("first_name"),
		LastName:  p.Get("last_name"),
		Phone:     p.Get("phone"),
	})
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Field("msg", "Registration successful.").
		Field("token", token).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	Message(http.StatusOK, "data", "Logged out.").Write(w)
}

// handleDeleteAccount answers 204 with no body.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.DeleteAccount(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
