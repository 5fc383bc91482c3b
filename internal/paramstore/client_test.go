package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	out  *ssm.GetParameterOutput
	err  error
	last *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.last = in
	return f.out, f.err
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: aws.String("/lingo/openai-key"), Value: aws.String("sk-live"), Type: types.ParameterTypeSecureString,
	}}}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), " /lingo/openai-key ")
	require.NoError(t, err)
	require.Equal(t, "sk-live", v)
	require.Equal(t, "/lingo/openai-key", aws.ToString(api.last.Name))
	require.True(t, aws.ToBool(api.last.WithDecryption))
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "  ")
	require.Error(t, err)
}

func TestGetParameter_APIError(t *testing.T) {
	c, err := New(&fakeAPI{err: errors.New("access denied")})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}

func TestGetParameter_MissingValue(t *testing.T) {
	c, err := New(&fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: aws.String("p")}}})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}
