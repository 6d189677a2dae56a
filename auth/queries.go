package auth

// userFields is the selection set shared by every operation that returns a
// user snapshot.
const userFields = `
    id
    firstName
    lastName
    email
    emailVerified
    picture
    roles {
      id
      name
    }`

const loginMutation = `mutation Login($input: LoginInput!) {
  login(input: $input) {
    accessToken
    refreshToken
    user {` + userFields + `
    }
  }
}`

const registerMutation = `mutation Register($input: RegisterInput!) {
  register(input: $input) {
    user {` + userFields + `
    }
  }
}`

const googleAuthMutation = `mutation GoogleAuth($code: String!, $redirectUrl: String!) {
  googleAuth(code: $code, redirectUrl: $redirectUrl) {
    accessToken
    refreshToken
    user {` + userFields + `
    }
  }
}`

const requestPasswordResetMutation = `mutation RequestPasswordReset($email: String!) {
  requestPasswordReset(email: $email)
}`

const resetPasswordMutation = `mutation ResetPassword($token: String!, $password: String!) {
  resetPassword(token: $token, password: $password)
}`

const sendOTPMutation = `mutation SendOTP($input: SendOTPInput!) {
  sendOTP(input: $input)
}`

const verifyOTPMutation = `mutation VerifyOTP($input: VerifyOTPInput!) {
  verifyOTP(input: $input)
}`

const updateUserMutation = `mutation UpdateUser($id: ID!, $input: UpdateUserInput!) {
  updateUser(id: $id, input: $input) {` + userFields + `
  }
}`

const deleteUserMutation = `mutation DeleteUser($id: ID!) {
  deleteUser(id: $id)
}`

const meQuery = `query Me {
  me {` + userFields + `
  }
}`

const userQuery = `query User($id: ID!) {
  user(id: $id) {` + userFields + `
  }
}`

const usersQuery = `query Users($page: Int, $limit: Int) {
  users(page: $page, limit: $limit) {
    data {` + userFields + `
    }
    meta {
      page
      limit
      pages
      total
    }
  }
}`
