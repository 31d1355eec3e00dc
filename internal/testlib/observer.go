package testlib

import (
	"github.com/stretchr/testify/mock"
	"github.com/voidcheck/voidcheck/voidlib"
)

type ObserverMock struct {
	mock.Mock
}

func (o *ObserverMock) EventSessionStart(evt voidlib.EventSessionStart) {
	o.Called(evt)
}

func (o *ObserverMock) EventSessionFinish(evt voidlib.EventSessionFinish) {
	o.Called(evt)
}

func (o *ObserverMock) EventBlocked(evt voidlib.EventBlocked) {
	o.Called(evt)
}

func (o *ObserverMock) EventPassed(evt voidlib.EventPassed) {
	o.Called(evt)
}

func (o *ObserverMock) EventCaptchaFallback(evt voidlib.EventCaptchaFallback) {
	o.Called(evt)
}

func (o *ObserverMock) EventBypassed(evt voidlib.EventBypassed) {
	o.Called(evt)
}

func (o *ObserverMock) EventCaptchaGenerated(evt voidlib.EventCaptchaGenerated) {
	o.Called(evt)
}

func (o *ObserverMock) EventTrafficRate(evt voidlib.EventTrafficRate) {
	o.Called(evt)
}

func (o *ObserverMock) EventLogsMuted(evt voidlib.EventLogsMuted) {
	o.Called(evt)
}

func (o *ObserverMock) Shutdown() {
	o.Called()
}
