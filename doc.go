// Package auth implements the account and token service of the Fur Fight
// Club backend.
//
// Users:
//   - User records live in a SQL store through bun. Passwords are stored as
//     bcrypt hashes and never leave the package; callers get UserRecord.
//   - AccountService runs registration, email confirmation, password reset
//     and change, email change, login and the plain reads and writes.
//     One-time email tokens are scoped to a purpose, expire, and are
//     consumed atomically so the same token cannot be used twice.
//
// Tokens:
//   - TokenService signs RS256 tokens. Service tokens identify a backend
//     peer by name, user tokens carry the user id and the role held at
//     login time. Verification pins the algorithm.
//
// HTTP:
//   - RegisterUserRoutes mounts the /user API on a fiber router. Routes are
//     guarded by NewServiceGateway and NewUserGateway.
//
// Events:
//   - Lifecycle operations publish AccountEvent values to a Notifier after
//     they commit. Delivery is best effort.
package auth
