package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
)

func ptr(s string) *string { return &s }

func TestLinkForm_Validate(t *testing.T) {
	in, err := LinkForm{Title: "  GitHub ", URL: " github.com/me "}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "GitHub", in.Title)
	assert.Equal(t, "https://github.com/me", in.URL)
	assert.Equal(t, "github", in.Icon)

	in, err = LinkForm{Title: "Mail", URL: "me@example.com", Icon: "star"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "mailto:me@example.com", in.URL)
	assert.Equal(t, "star", in.Icon)
}

func TestLinkForm_ValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		form LinkForm
		want FieldErrors
	}{
		{"empty", LinkForm{Title: "   ", URL: ""}, FieldErrors{"title": "Title is required", "url": "URL is required"}},
		{"bad url", LinkForm{Title: "x", URL: "[::1"}, FieldErrors{"url": "Please enter a valid URL"}},
		{"negative price", LinkForm{Title: "x", URL: "example.com", IsPaid: true, Price: -1}, FieldErrors{"price": "Price cannot be negative"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Validate()
			var fe FieldErrors
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.want, fe)
		})
	}
}

func TestProfileForm_Validate(t *testing.T) {
	u, err := ProfileForm{Title: ptr("Jane"), Username: ptr(" Jane-Doe "), CustomDomain: ptr("Links.Example.com")}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "jane-doe", *u.Username)
	assert.Equal(t, "links.example.com", *u.CustomDomain)
	assert.Equal(t, "Jane", *u.Title)
	assert.Nil(t, u.Bio)

	_, err = ProfileForm{Username: ptr("ab")}.Validate()
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Username must be at least 3 characters", fe["username"])

	_, err = ProfileForm{Username: ptr("bad name!"), AvatarURL: ptr("not a url")}.Validate()
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "username")
	assert.Equal(t, "Please enter a valid image URL", fe["avatarUrl"])
}

func TestCredentials_Validate(t *testing.T) {
	c, err := Credentials{Email: " me@example.com ", Password: "password1"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", c.Email)

	_, err = Credentials{Email: "nope", Password: "short"}.Validate()
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FieldErrors{"email": "Please enter a valid email", "password": "Password must be at least 8 characters"}, fe)
	assert.Contains(t, fe.Error(), "email: Please enter a valid email")
}

func TestSuggestUsername(t *testing.T) {
	assert.Equal(t, "jane-doe", SuggestUsername("Jane Doe!"))
	assert.Equal(t, "", SuggestUsername("J"))
}

func TestLinkPatch(t *testing.T) {
	u, err := LinkPatch(domainUpdate(ptr(" Blog "), ptr("blog.example.com")))
	require.NoError(t, err)
	assert.Equal(t, "Blog", *u.Title)
	assert.Equal(t, "https://blog.example.com", *u.URL)

	u, err = LinkPatch(domainUpdate(nil, nil))
	require.NoError(t, err)
	assert.Nil(t, u.Title)
	assert.Nil(t, u.URL)

	_, err = LinkPatch(domainUpdate(ptr(""), ptr("[::1")))
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FieldErrors{"title": "Title is required", "url": "Please enter a valid URL"}, fe)
}

func domainUpdate(title, url *string) domain.LinkUpdate {
	return domain.LinkUpdate{Title: title, URL: url}
}
