package transport

import (
	"net/http"

	"github.com/gorilla/mux"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
)

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type signupRequest struct {
	FirstName       string `json:"fName" validate:"required_without=UserName,omitempty,min=3,max=15"`
	LastName        string `json:"lName" validate:"required_without=UserName,omitempty,min=3,max=15"`
	UserName        string `json:"userName" validate:"required_without_all=FirstName LastName,omitempty,min=3,max=31"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"cPassword" validate:"required,eqfield=Password"`
	Age             int    `json:"age" validate:"required,min=18,max=60"`
	Gender          string `json:"gender" validate:"required,oneof=male female"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type confirmEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Otp   string `json:"otp" validate:"required,len=6,numeric"`
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Otp             string `json:"otp" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"cPassword" validate:"required,eqfield=Password"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (s *server) userRoutes(r *mux.Router) {
	r.HandleFunc("/signup", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/resendOtp", s.resendOtp).Methods(http.MethodPost)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/loginGmail", s.loginGmail).Methods(http.MethodPost)
	r.HandleFunc("/refresh", s.refresh).Methods(http.MethodPost)
	r.HandleFunc("/confirmEmail", s.confirmEmail).Methods(http.MethodPatch)
	r.HandleFunc("/forgetPassword", s.forgetPassword).Methods(http.MethodPatch)
	r.HandleFunc("/resetPassword", s.resetPassword).Methods(http.MethodPatch)
	r.Handle("/profile", s.customer(s.profile)).Methods(http.MethodGet)
}

func (s *server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	first, last := req.FirstName, req.LastName
	if first == "" && last == "" {
		first, last = model.SplitUserName(req.UserName)
	}

	user, err := s.Identity.Signup(r.Context(), service.SignupInput{
		FirstName: first,
		LastName:  last,
		Email:     req.Email,
		Password:  req.Password,
		Age:       req.Age,
		Gender:    model.Gender(req.Gender),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"user": user})
}

func (s *server) resendOtp(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Identity.ResendOtp(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, nil)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := s.Identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, tokens(pair))
}

func (s *server) loginGmail(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := s.Identity.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, tokens(pair))
}

// refresh reads the bearer prefix from the Authorization header, where the
// token itself is optional, and the refresh token from the body.
func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	prefix := r.Header.Get("Authorization")
	if p, _, err := bearer(r); err == nil {
		prefix = p
	}
	if prefix == "" {
		writeError(w, r, model.ErrMissingToken)
		return
	}
	pair, err := s.Identity.Refresh(r.Context(), prefix, req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, tokens(pair))
}

func (s *server) confirmEmail(w http.ResponseWriter, r *http.Request) {
	var req confirmEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Identity.ConfirmEmail(r.Context(), req.Email, req.Otp); err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, nil)
}

func (s *server) forgetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Identity.ForgetPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, nil)
}

func (s *server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Identity.ResetPassword(r.Context(), req.Email, req.Otp, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, nil)
}

func (s *server) profile(w http.ResponseWriter, r *http.Request) {
	user, err := s.Identity.Profile(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"user": user})
}

func tokens(pair *model.TokenPair) payload {
	return payload{"accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken}
}
