package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/config"
	"github.com/voidcheck/voidcheck/voidlib"
)

type typeCheckStateTestStruct struct {
	Value config.TypeCheckState `json:"value"`
}

type TypeCheckStateTestSuite struct {
	suite.Suite
}

func (suite *TypeCheckStateTestSuite) TestUnmarshalFail() {
	testData := []string{
		"",
		"successful",
		"captcha",
		"position_only",
	}

	for _, v := range testData {
		data, err := json.Marshal(map[string]string{
			"value": v,
		})
		suite.NoError(err)

		suite.T().Run(v, func(t *testing.T) {
			assert.Error(t, json.Unmarshal(data, &typeCheckStateTestStruct{}))
		})
	}
}

func (suite *TypeCheckStateTestSuite) TestUnmarshalOk() {
	testData := map[string]voidlib.CheckState{
		"only_position":              voidlib.CheckOnlyPosition,
		"ONLY_CAPTCHA":               voidlib.CheckOnlyCaptcha,
		"captcha-position":           voidlib.CheckCaptchaPosition,
		"CAPTCHA_ON_POSITION_FAILED": voidlib.CheckCaptchaOnPositionFailed,
	}

	for k, v := range testData {
		value := v

		data, err := json.Marshal(map[string]string{
			"value": k,
		})
		suite.NoError(err)

		suite.T().Run(k, func(t *testing.T) {
			testStruct := &typeCheckStateTestStruct{}

			assert.NoError(t, json.Unmarshal(data, testStruct))
			assert.Equal(t, value, testStruct.Value.Get(voidlib.CheckSuccessful))
		})
	}
}

func (suite *TypeCheckStateTestSuite) TestMarshalOk() {
	testStruct := &typeCheckStateTestStruct{}

	suite.NoError(testStruct.Value.Set("ONLY_CAPTCHA"))

	data, err := json.Marshal(testStruct)
	suite.NoError(err)
	suite.JSONEq(`{"value": "only_captcha"}`, string(data))
}

func (suite *TypeCheckStateTestSuite) TestGet() {
	value := config.TypeCheckState{}
	suite.Equal(voidlib.CheckCaptchaPosition, value.Get(voidlib.CheckCaptchaPosition))

	suite.NoError(value.Set("only_position"))
	suite.Equal(voidlib.CheckOnlyPosition, value.Get(voidlib.CheckCaptchaPosition))
}

func TestTypeCheckState(t *testing.T) {
	t.Parallel()
	suite.Run(t, &TypeCheckStateTestSuite{})
}
