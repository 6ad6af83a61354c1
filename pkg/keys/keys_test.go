package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/suite"
)

// KeysTestSuite tests key derivation
type KeysTestSuite struct {
	suite.Suite
	base13 []byte
	base11 []byte
}

func (s *KeysTestSuite) SetupTest() {
	s.base13 = []byte{0xF1, 0x70, 0xCE, 0xA4, 0xDF, 0xCE, 0xA3, 0xE1, 0xA5, 0xD8, 0xC7, 0x0B, 0xD1}
	s.base11 = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B}
}

func (s *KeysTestSuite) TestDeriveSQLiteCipherKeyProperty() {
	plain := make([]byte, 40)
	for i := range plain {
		plain[i] = byte(i * 7)
	}

	out, err := DeriveSQLiteCipherKey(plain, s.base13)
	s.Require().NoError(err)
	s.Len(out, len(plain))
	for i := range plain {
		s.Equal(plain[i]^s.base13[i%13], out[i], "byte %d", i)
	}
}

func (s *KeysTestSuite) TestDeriveSQLiteCipherKeyLongBaseUsesFirst13() {
	longBase := append(append([]byte{}, s.base13...), 0xFF, 0xFF, 0xFF)
	plain := bytes.Repeat([]byte{0x00}, 16)

	out, err := DeriveSQLiteCipherKey(plain, longBase)
	s.Require().NoError(err)
	s.Equal(s.base13[0], out[13])
	s.Equal(s.base13[2], out[15])
}

func (s *KeysTestSuite) TestDeriveSQLiteCipherKeyShortBase() {
	_, err := DeriveSQLiteCipherKey([]byte{1, 2, 3}, s.base13[:12])
	s.ErrorIs(err, ErrInvalidKeyLength)
}

func (s *KeysTestSuite) TestDeriveSQLiteCipherKeyEmptyPlain() {
	out, err := DeriveSQLiteCipherKey(nil, s.base13)
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *KeysTestSuite) TestDeriveBundleKeystreamLayout() {
	ks, err := DeriveBundleKeystream(s.base11, 0x123456789ABCDEF0)
	s.Require().NoError(err)
	s.Len(ks, BundleKeystreamLen)

	// little-endian key bytes: F0 DE BC 9A 78 56 34 12
	s.Equal(byte(0x01^0xF0), ks[0])
	s.Equal(byte(0x01^0x12), ks[7])
	s.Equal(byte(0x02^0xF0), ks[8])
	s.Equal(byte(0x0B^0x12), ks[87])
}

func (s *KeysTestSuite) TestDeriveBundleKeystreamDeterministic() {
	a, err := DeriveBundleKeystream(s.base11, 42)
	s.Require().NoError(err)
	b, err := DeriveBundleKeystream(s.base11, 42)
	s.Require().NoError(err)
	s.Equal(a, b)

	c, err := DeriveBundleKeystream(s.base11, 43)
	s.Require().NoError(err)
	s.NotEqual(a, c)
}

func (s *KeysTestSuite) TestDeriveBundleKeystreamZeroKeyIsBase() {
	ks, err := DeriveBundleKeystream(s.base11, 0)
	s.Require().NoError(err)
	for i := 0; i < BundleBaseKeyLen; i++ {
		s.Equal(bytes.Repeat([]byte{s.base11[i]}, 8), ks[i*8:i*8+8])
	}
}

func (s *KeysTestSuite) TestDeriveBundleKeystreamWrongBase() {
	_, err := DeriveBundleKeystream(s.base11[:10], 1)
	s.ErrorIs(err, ErrInvalidKeyLength)

	_, err = DeriveBundleKeystream(s.base13, 1)
	s.ErrorIs(err, ErrInvalidKeyLength)
}

func (s *KeysTestSuite) TestDecodeHex() {
	testCases := []struct {
		input   string
		want    []byte
		wantErr bool
	}{
		{"00ff10", []byte{0x00, 0xFF, 0x10}, false},
		{"0xABcd", []byte{0xAB, 0xCD}, false},
		{"  0a0b \n", []byte{0x0A, 0x0B}, false},
		{"", []byte{}, false},
		{"abc", nil, true},
		{"zz", nil, true},
		{"0g", nil, true},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			got, err := DecodeHex(tc.input)
			if tc.wantErr {
				s.ErrorIs(err, ErrInvalidHexString)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.want, got)
		})
	}
}

func (s *KeysTestSuite) TestSQLiteCipherKeyHex() {
	out, err := SQLiteCipherKeyHex("00010203", "000000000000000000000000ff")
	s.Require().NoError(err)
	s.Equal("00010203", out)

	out, err = SQLiteCipherKeyHex("ffffffffffffffffffffffffffffff", "0102030405060708090a0b0c0d")
	s.Require().NoError(err)
	s.Equal("fefdfcfbfaf9f8f7f6f5f4f3f2fefd", out)
}

func (s *KeysTestSuite) TestSQLiteCipherKeyHexErrors() {
	_, err := SQLiteCipherKeyHex("abc", "0102030405060708090a0b0c0d")
	s.ErrorIs(err, ErrInvalidHexString)

	_, err = SQLiteCipherKeyHex("ab", "0102")
	s.ErrorIs(err, ErrInvalidKeyLength)
}

func TestKeysTestSuite(t *testing.T) {
	suite.Run(t, new(KeysTestSuite))
}
