package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() CreateInput {
	return CreateInput{
		ID:       "s1",
		Type:     TypeStudent,
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "0123456789",
		Password: "password123",
	}
}

func TestCreateInput_Normalize(t *testing.T) {
	t.Parallel()

	in := CreateInput{
		ID:    "  s1 ",
		Name:  " Ada ",
		Email: " Ada@Example.COM ",
		Phone: " (012) 345-67.89 ",
	}.Normalize()

	assert.Equal(t, "s1", in.ID)
	assert.Equal(t, "Ada", in.Name)
	assert.Equal(t, "ada@example.com", in.Email)
	assert.Equal(t, "0123456789", in.Phone)
}

func TestCreateInput_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		ok     bool
	}{
		{name: "valid", mutate: func(*CreateInput) {}, ok: true},
		{name: "max id", mutate: func(in *CreateInput) { in.ID = strings.Repeat("a", MaxIDLen) }, ok: true},
		{name: "max phone", mutate: func(in *CreateInput) { in.Phone = strings.Repeat("1", MaxPhoneLen) }, ok: true},
		{name: "bad type", mutate: func(in *CreateInput) { in.Type = "janitor" }},
		{name: "empty id", mutate: func(in *CreateInput) { in.ID = "" }},
		{name: "long id", mutate: func(in *CreateInput) { in.ID = strings.Repeat("a", MaxIDLen+1) }},
		{name: "id with separator", mutate: func(in *CreateInput) { in.ID = "a;b" }},
		{name: "id with space", mutate: func(in *CreateInput) { in.ID = "a b" }},
		{name: "empty name", mutate: func(in *CreateInput) { in.Name = "" }},
		{name: "long name", mutate: func(in *CreateInput) { in.Name = strings.Repeat("n", MaxNameLen+1) }},
		{name: "bad email", mutate: func(in *CreateInput) { in.Email = "not-an-email" }},
		{name: "display-name email", mutate: func(in *CreateInput) { in.Email = "Ada <ada@example.com>" }},
		{name: "short phone", mutate: func(in *CreateInput) { in.Phone = "123456789" }},
		{name: "long phone", mutate: func(in *CreateInput) { in.Phone = strings.Repeat("1", MaxPhoneLen+1) }},
		{name: "phone letters", mutate: func(in *CreateInput) { in.Phone = "01234abcde" }},
		{name: "empty password", mutate: func(in *CreateInput) { in.Password = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := validInput()
			tt.mutate(&in)
			err := in.Validate("test")
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"admin", "Student", " TEACHER "} {
		typ, err := ParseType(s)
		require.NoError(t, err, s)
		assert.True(t, typ.Valid())
	}
	_, err := ParseType("parent")
	assert.True(t, IsInvalidInput(err))
}

func TestAccountViews(t *testing.T) {
	t.Parallel()

	h := "session"
	a := Account{
		ID: "t1", Type: TypeTeacher, Name: "Grace", Email: "grace@example.com", Phone: "0123456789",
		Avatar: "https://cdn.example.com/g.png", AuthHash: "hash", SecretKey: "secret", SessionHash: &h,
	}

	pub := a.Public()
	assert.Equal(t, PublicView{ID: "t1", Type: TypeTeacher, Name: "Grace", Avatar: "https://cdn.example.com/g.png"}, pub)

	res := a.Restricted()
	assert.Equal(t, pub, res.PublicView)
	assert.Equal(t, "grace@example.com", res.Email)
	assert.Equal(t, "0123456789", res.Phone)
}
