// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package petra

import "testing"

func TestRegisterProcessorFactory_NamesAreNotCaseSensitive(t *testing.T) {
	factory := func(Interpreter) Processor { return nil }
	RegisterProcessorFactory("Test-Processor-A", factory)
	if GetProcessorFactory("test-processor-a") == nil {
		t.Errorf("expected the factory to be found under the lower-case name")
	}
	if GetProcessorFactory("TEST-PROCESSOR-A") == nil {
		t.Errorf("expected the factory to be found under the upper-case name")
	}
}

func TestRegisterProcessorFactory_DuplicatesPanic(t *testing.T) {
	factory := func(Interpreter) Processor { return nil }
	RegisterProcessorFactory("test-processor-b", factory)
	defer func() {
		if recover() == nil {
			t.Errorf("expected a second registration under the same name to panic")
		}
	}()
	RegisterProcessorFactory("Test-Processor-B", factory)
}

func TestRegisterProcessorFactory_NilFactoriesPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a nil factory to panic")
		}
	}()
	RegisterProcessorFactory("test-processor-c", nil)
}

func TestGetProcessor_UnknownNamesYieldNil(t *testing.T) {
	if got := GetProcessor("there-is-no-such-processor", nil); got != nil {
		t.Errorf("expected no processor, but got %v", got)
	}
}
